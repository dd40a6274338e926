// Package cmd implements the packet-networking subcommands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/message"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
	"github.com/mmlb/packethost-packet-networking/internal/config"
	"github.com/mmlb/packethost-packet-networking/internal/i18n"
	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/metrics"
	"github.com/mmlb/packethost-packet-networking/internal/network"
	"github.com/mmlb/packethost-packet-networking/internal/pipeline"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/render/targets"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Process-wide output. Tests replace the writers.
var (
	Printer *message.Printer = i18n.NewCLIPrinter(os.Getenv)

	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Registry is the renderer registry the commands use.
var Registry = targets.Default

// Options are the flags shared by the commands that render.
type Options struct {
	ConfigFile   string
	Targets      string
	MetadataFile string
	MetadataURL  string
	Format       string
	Encoding     string
	RootFS       string
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(Stderr)
	return fs
}

// bindCommon registers the shared flags on fs.
func bindCommon(fs *flag.FlagSet, withRoot bool) *Options {
	o := &Options{}
	fs.StringVar(&o.ConfigFile, "config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(&o.ConfigFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	fs.StringVar(&o.Targets, "targets", "", "Comma-separated render targets (default from config, then metadata distro)")
	fs.StringVar(&o.Targets, "t", "", "Render targets (short)")
	fs.StringVar(&o.MetadataFile, "metadata", "", "Read metadata from a file, - for stdin")
	fs.StringVar(&o.MetadataFile, "m", "", "Metadata file (short)")
	fs.StringVar(&o.MetadataURL, "url", "", "Fetch metadata from a URL")
	fs.StringVar(&o.MetadataURL, "u", "", "Metadata URL (short)")
	fs.StringVar(&o.Format, "format", "", "Metadata shape: canonical or packet")
	fs.StringVar(&o.Format, "f", "", "Metadata shape (short)")
	fs.StringVar(&o.Encoding, "encoding", "", "Metadata encoding: json, yaml or auto")
	if withRoot {
		fs.StringVar(&o.RootFS, "rootfs", "", "Root filesystem to write to or compare against")
		fs.StringVar(&o.RootFS, "r", "", "Root filesystem (short)")
	}
	return o
}

// session is the state one command invocation works with.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *metrics.Registry
	pipeline *pipeline.Pipeline
	registry *render.Registry
	// Empty until selectTargets picks one from the metadata distro.
	targets []string
}

// loadConfig reads the config file and folds the command-line overrides in.
func loadConfig(o *Options) (*config.Config, error) {
	cfg, err := config.LoadFile(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.MetadataFile != "" {
		cfg.Metadata.File = o.MetadataFile
	}
	if o.MetadataURL != "" {
		cfg.Metadata.URL = o.MetadataURL
		cfg.Metadata.File = ""
	}
	if o.Format != "" {
		cfg.Metadata.Format = o.Format
	}
	if o.Encoding != "" {
		cfg.Metadata.Encoding = o.Encoding
	}
	if o.Targets != "" {
		cfg.Targets = splitList(o.Targets)
	}
	if o.RootFS != "" {
		cfg.RootFS = o.RootFS
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("configuration invalid: %w", errs)
	}
	return cfg, nil
}

func newSession(o *Options) (*session, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New(logging.Config{Level: level, Output: Stderr, JSON: cfg.Logging.JSON})
	logging.SetDefault(logger)

	reg := Registry()
	keys := cfg.Targets
	if len(keys) == 0 {
		keys = []string{cfg.FallbackTarget}
	}
	if _, err := reg.Resolve(keys...); err != nil {
		return nil, err
	}

	m := metrics.New()
	return &session{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		pipeline: pipeline.New(reg, pipeline.WithLogger(logger), pipeline.WithMetrics(m)),
		registry: reg,
		targets:  cfg.Targets,
	}, nil
}

// selectTargets picks the target from the metadata's operating_system
// distro when none is configured. A missing distro, or one no renderer
// claims as key or alias, gets the fallback target.
func (s *session) selectTargets(raw map[string]any) error {
	if len(s.targets) > 0 {
		return nil
	}
	log := s.logger.WithComponent("cmd")

	sys, err := metadata.ParseOperatingSystem(raw)
	if err != nil {
		return err
	}
	target := s.cfg.FallbackTarget
	switch r, err := s.registry.Lookup(sys.Distro); {
	case sys.Distro == "":
		log.Warn("metadata names no distro, using fallback target", "target", target)
	case err != nil:
		log.Warn("no renderer for distro, using fallback target", "distro", sys.Distro, "target", target)
	default:
		target = r.Target()
		log.Info("target selected from distro", "distro", sys.Distro, "version", sys.Version, "target", target)
	}
	s.targets = []string{target}
	return nil
}

// loadMetadata reads, decodes and converts the metadata document, then
// fills host facts it lacks from the config and the running system.
func (s *session) loadMetadata(ctx context.Context) (map[string]any, error) {
	m := s.cfg.Metadata
	log := s.logger.WithComponent("cmd")

	var (
		data []byte
		err  error
	)
	switch {
	case m.File == "-":
		data, err = io.ReadAll(Stdin)
	case m.File != "":
		data, err = os.ReadFile(m.File)
	default:
		log.Info("fetching metadata", "url", m.URL)
		data, err = metadata.Fetch(ctx, m.URL, m.TimeoutDuration())
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	enc, err := metadata.ParseFormat(m.Encoding)
	if err != nil {
		return nil, err
	}
	raw, err := metadata.Decode(data, enc)
	if err != nil {
		return nil, err
	}

	if m.Format == config.FormatPacket {
		raw, err = metadata.FromPacket(raw, metadata.PacketOptions{
			PrivateSubnets: s.cfg.PrivateSubnets,
			Resolvers:      s.cfg.Resolvers,
		})
		if err != nil {
			return nil, err
		}
	} else if _, ok := raw[metadata.SectionResolvers]; !ok && len(s.cfg.Resolvers) > 0 {
		raw[metadata.SectionResolvers] = toAny(s.cfg.Resolvers)
	}

	if s.cfg.Hostname != "" {
		raw["hostname"] = s.cfg.Hostname
	}

	if _, ok := raw[metadata.SectionResolvers]; !ok {
		addrs, err := network.HostResolvers(s.cfg.Discovery.ResolvConf)
		if err != nil {
			log.Warn("no resolvers in metadata and host resolvers unreadable", "error", err)
		} else if len(addrs) > 0 {
			raw[metadata.SectionResolvers] = network.ResolverStrings(addrs)
		}
	}

	if s.cfg.Discovery.Enabled {
		d, err := network.NewNamespaceDiscoverer(s.cfg.Discovery.Netns, s.logger)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		defer d.Close()
		links, err := d.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		n := network.HintNames(raw, links)
		log.Info("applied host link names", "hints", n)
	}
	return raw, nil
}

// run loads metadata and renders every selected target.
func (s *session) run(ctx context.Context) (*pipeline.Result, error) {
	raw, err := s.loadMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.selectTargets(raw); err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, raw, s.targets...)
}

// single requires exactly one target for commands that touch one root.
// A distro-selected target always counts as one.
func (s *session) single(cmd string) error {
	if len(s.targets) > 1 {
		return fmt.Errorf("%s needs exactly one target, got %d (%s)", cmd, len(s.targets), strings.Join(s.targets, ", "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

// Explain renders err for a terminal, one problem per line where the
// error carries several.
func Explain(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())

	var verr *topology.ValidationError
	var cerrs config.ValidationErrors
	var uerr *render.UnknownTargetError
	switch {
	case errors.As(err, &verr):
		b.Reset()
		fmt.Fprintf(&b, "topology is not supported by target %s:", verr.Target)
		for _, v := range verr.Violations {
			fmt.Fprintf(&b, "\n  - %s", v)
		}
	case errors.As(err, &cerrs):
		b.Reset()
		b.WriteString("configuration invalid:")
		for _, e := range cerrs {
			fmt.Fprintf(&b, "\n  - %s", e)
		}
	case errors.As(err, &uerr):
		fmt.Fprintf(&b, "\nrun '%s targets' to list the available targets", brand.BinaryName)
	}
	return b.String()
}
