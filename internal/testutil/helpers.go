// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
)

// EnvVMTest gates tests that need a real kernel (netlink, namespaces).
var EnvVMTest = brand.ConfigEnvPrefix + "_VM_TEST"

// RequireVM skips the test unless EnvVMTest is set.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvVMTest) == "" {
		t.Skipf("Skipping test: requires %s environment", EnvVMTest)
	}
}

// RequireRoot skips the test when not running as uid 0.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
