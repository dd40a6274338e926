package cmd

import (
	"strings"
	"text/tabwriter"
)

// RunTargets lists the registered targets with their aliases and
// capabilities.
func RunTargets(args []string) error {
	fs := newFlagSet("targets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg := Registry()
	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	Printer.Fprintln(w, "TARGET\tALIASES\tBONDING\tVLANS\tIPV6")
	for _, t := range reg.Targets() {
		r, err := reg.Lookup(t)
		if err != nil {
			return err
		}
		caps := r.Capabilities()
		aliases := strings.Join(reg.Aliases(t), ",")
		if aliases == "" {
			aliases = "-"
		}
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t, aliases, yesNo(caps.Bonding), yesNo(caps.VLANs), yesNo(caps.IPv6))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
