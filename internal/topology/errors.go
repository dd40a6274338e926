package topology

import (
	"fmt"
	"strings"
)

// UnresolvedReferenceError reports a record that points at an identifier
// no record declares, or a relation the graph cannot hold.
type UnresolvedReferenceError struct {
	Kind string // "bond member", "vlan parent", "address owner", ...
	From string // identifier of the referencing record
	Ref  string // identifier that failed to resolve

	// Conflicting lists, sorted, every bond that claims Ref when an
	// interface is enslaved more than once.
	Conflicting []string

	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unresolved %s", e.Kind)
	if e.From != "" {
		fmt.Fprintf(&b, " in %q", e.From)
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, ": %q", e.Ref)
	}
	if len(e.Conflicting) > 0 {
		fmt.Fprintf(&b, " claimed by bonds %s", strings.Join(e.Conflicting, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Violation is a single rule a graph breaks for a target.
type Violation struct {
	Node    string // interface name, empty for graph-wide rules
	Rule    string
	Message string
}

func (v Violation) String() string {
	if v.Node == "" {
		return v.Rule + ": " + v.Message
	}
	return v.Node + ": " + v.Rule + ": " + v.Message
}

// Rule identifiers used in Violation.Rule.
const (
	RuleBondUnsupported  = "bond-unsupported"
	RuleBondMode         = "bond-mode"
	RuleVLANUnsupported  = "vlan-unsupported"
	RuleVLANTag          = "vlan-tag"
	RuleFamily           = "address-family"
	RuleDuplicateAddress = "duplicate-address"
	RuleGateway          = "gateway"
	RuleDuplicateMAC     = "duplicate-mac"
	RuleInterfaceName    = "interface-name"
	RuleMemberConfig     = "bond-member-config"
	RuleRouteNextHop     = "route-next-hop"
)

// ValidationError collects every rule a graph violates for one target.
type ValidationError struct {
	Target     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("topology invalid")
	if e.Target != "" {
		fmt.Fprintf(&b, " for target %s", e.Target)
	}
	fmt.Fprintf(&b, " (%d violation", len(e.Violations))
	if len(e.Violations) != 1 {
		b.WriteString("s")
	}
	b.WriteString(")")
	for _, v := range e.Violations {
		b.WriteString("; ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Has reports whether any violation matches rule.
func (e *ValidationError) Has(rule string) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
