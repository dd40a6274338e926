package validation

import (
	"strings"
	"testing"
)

func TestValidateInterfaceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "eth0", false},
		{"predictable", "enp1s0f1", false},
		{"bond", "bond0", false},
		{"with dot (vlan)", "bond0.100", false},
		{"max length", "eth0123456789ab", false}, // 15 chars

		{"empty", "", true},
		{"dot only", ".", true},
		{"too long", "eth01234567890123", true},
		{"vlan pushes past limit", "enp129s0f1.4000", false},
		{"vlan past limit", "enp129s0f1n.4000", true},
		{"space", "eth 0", true},
		{"semicolon injection", "eth0;rm", true},
		{"newline", "eth0\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterfaceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInterfaceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "eth0", false},
		{"uuid-ish", "3f2b-11aa", false},
		{"dotted", "bond0.100", false},
		{"colon", "port:1", false},

		{"empty", "", true},
		{"space", "my nic", true},
		{"semicolon", "nic;drop", true},
		{"long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"c3-small-01", false},
		{"host.example.com", false},
		{"host.example.com.", false},
		{"", true},
		{"-leading", true},
		{"under_score", true},
		{strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		err := ValidateHostname(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHostname(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple", "etc/hostname", false},
		{"nested", "etc/sysconfig/network-scripts/ifcfg-bond0:0", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../../../etc/passwd", true},
		{"inner traversal", "etc/../../passwd", true},
		{"null byte", "etc/host\x00name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelativePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIP(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"ipv4", "192.168.1.1", false},
		{"ipv6", "2001:db8::1", false},

		{"empty", "", true},
		{"invalid ip", "999.999.999.999", true},
		{"cidr", "192.168.1.0/24", true},
		{"zoned", "fe80::1%eth0", true},
		{"text", "not-an-ip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIP(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIP(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAllowlist(t *testing.T) {
	allowed := []string{"canonical", "packet"}

	if err := ValidateAllowlist("packet", allowed); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAllowlist("cloud-init", allowed); err == nil {
		t.Error("expected error for value outside allowlist")
	}
}
