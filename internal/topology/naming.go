package topology

import (
	"strconv"
	"strings"

	"github.com/mmlb/packethost-packet-networking/internal/validation"
)

// namer hands out interface names that are unique across the graph.
type namer struct {
	used     map[string]bool
	counters map[string]int
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool), counters: make(map[string]int)}
}

// reserve claims a hinted name. Dotted names are left to VLANs so that a
// hint can never collide with a generated "<parent>.<tag>".
func (n *namer) reserve(name string) bool {
	if n.used[name] || strings.Contains(name, ".") {
		return false
	}
	if validation.ValidateInterfaceName(name) != nil {
		return false
	}
	n.used[name] = true
	return true
}

// next returns the lowest-numbered free "<prefix><N>".
func (n *namer) next(prefix string) string {
	for {
		name := prefix + strconv.Itoa(n.counters[prefix])
		n.counters[prefix]++
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}

func vlanName(parent string, tag int) string {
	return parent + "." + strconv.Itoa(tag)
}
