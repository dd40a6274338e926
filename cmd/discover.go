package cmd

import (
	"context"
	"text/tabwriter"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/network"
)

// RunDiscover lists the host's links and their hardware addresses.
func RunDiscover(ctx context.Context, args []string) error {
	fs := newFlagSet("discover")
	netns := fs.String("netns", "", "Inspect this named network namespace")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: logging.LevelWarn, Output: Stderr})
	d, err := network.NewNamespaceDiscoverer(*netns, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	links, err := d.Discover(ctx)
	if err != nil {
		return err
	}
	printLinks(links)
	return nil
}

func printLinks(links []network.Link) {
	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	Printer.Fprintln(w, "NAME\tKIND\tMAC\tPERMADDR\tMASTER\tSTATE")
	for _, l := range links {
		perm, master, st := "-", "-", "down"
		if len(l.PermMAC) > 0 {
			perm = l.PermMAC.String()
		}
		if l.Master != "" {
			master = l.Master
		}
		if l.Up {
			st = "up"
		}
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", l.Name, l.Kind, l.MAC, perm, master, st)
	}
	w.Flush()
}
