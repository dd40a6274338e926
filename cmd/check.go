package cmd

import (
	"context"
	"strings"

	"github.com/mmlb/packethost-packet-networking/internal/i18n"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// RunCheck parses, builds and validates the metadata for every configured
// target without rendering, then prints a summary of the topology.
func RunCheck(ctx context.Context, args []string) error {
	fs := newFlagSet("check")
	o := bindCommon(fs, false)
	verbose := fs.Bool("verbose", false, "Print the interface tree")
	fs.BoolVar(verbose, "v", false, "Verbose output (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(o)
	if err != nil {
		return err
	}
	raw, err := s.loadMetadata(ctx)
	if err != nil {
		return err
	}
	if err := s.selectTargets(raw); err != nil {
		return err
	}
	g, err := s.pipeline.Check(ctx, raw, s.targets...)
	if err != nil {
		return err
	}

	Printer.Fprintf(Stdout, "Metadata valid for %s\n", strings.Join(s.targets, ", "))
	if g.Hostname() != "" {
		Printer.Fprintf(Stdout, "Hostname: %s\n", g.Hostname())
	}
	Printer.Fprintf(Stdout, i18n.MsgInterfaces, g.Len())
	Printer.Fprintf(Stdout, " (%d physical, %d bonds, %d vlans)\n", len(g.Physicals()), len(g.Bonds()), len(g.VLANs()))
	for _, w := range g.Warnings() {
		Printer.Fprintf(Stdout, "warning: %s\n", w)
	}

	if *verbose {
		Printer.Fprintln(Stdout)
		printTree(g)
	}
	return nil
}

func printTree(g *topology.Graph) {
	var node func(n *topology.Node, depth int)
	node = func(n *topology.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		switch n.Kind {
		case topology.KindPhysical:
			Printer.Fprintf(Stdout, "%s%s [%s] %s\n", indent, n.Name, n.ID, n.MAC)
		case topology.KindBond:
			Printer.Fprintf(Stdout, "%s%s [%s] bond %s\n", indent, n.Name, n.ID, n.Mode)
		case topology.KindVLAN:
			Printer.Fprintf(Stdout, "%s%s [%s] vlan %d\n", indent, n.Name, n.ID, n.Tag)
		}
		for _, a := range n.Addresses {
			gw := ""
			if a.HasGateway() {
				gw = " via " + a.Gateway.String()
			}
			Printer.Fprintf(Stdout, "%s  %s %s%s\n", indent, a.Prefix, a.Scope, gw)
		}
		for _, r := range n.Routes {
			Printer.Fprintf(Stdout, "%s  route %s via %s\n", indent, r.Destination, r.Via)
		}
		for _, m := range g.Members(n) {
			node(m, depth+1)
		}
		for _, c := range g.Children(n) {
			node(c, depth+1)
		}
	}
	for _, r := range g.Roots() {
		node(r, 0)
	}
}
