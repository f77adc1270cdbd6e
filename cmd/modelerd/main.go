// Command modelerd builds an entity-relationship diagram from ORM model
// metadata and either writes it out or serves it over HTTP.
//
// Usage:
//
//	modelerd [generate] --config modelerd.yaml --manifest models.yaml --out erd.mmd
//	modelerd serve --config modelerd.yaml --addr :8080
//
// Exit status is 2 when the model metadata cannot be read and 1 for any
// other failure.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/koustreak/modelerd/internal/config"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "modelerd:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command failure to the process exit status.
func exitCode(err error) int {
	if errs.IsMetadataSourceUnavailable(err) {
		return 2
	}
	return 1
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	root := newRootCmd(&options{}, stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// options are the command-line overrides applied on top of the loaded config.
type options struct {
	configPath string
	manifest   string
	out        string
	format     string
	addr       string
	publish    bool
	logLevel   string
}

// newRootCmd builds the command tree. Running the root without a subcommand
// is the same as generate.
func newRootCmd(opts *options, stdout io.Writer) *cobra.Command {
	runGenerate := func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := load(opts, cmd.Name())
		if err != nil {
			return err
		}
		return generate(cmd.Context(), cfg, log, stdout)
	}

	root := &cobra.Command{
		Use:           "modelerd",
		Short:         "Build an entity-relationship diagram from ORM model metadata",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("MODELERD_CONFIG"), "path to the YAML config file")
	pf.StringVar(&opts.manifest, "manifest", "", "path to the model manifest (overrides metadata.manifest)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	generateFlags(root.Flags(), opts)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the diagram once and write it out",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	generateFlags(generateCmd.Flags(), opts)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve builds over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(opts, cmd.Name())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	serveCmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")

	root.AddCommand(generateCmd, serveCmd)
	return root
}

func generateFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.out, "out", "o", "", `output file, "-" for stdout (overrides output.path)`)
	fs.StringVarP(&opts.format, "format", "f", "", "mermaid or json (overrides output.format)")
	fs.BoolVar(&opts.publish, "publish", false, "upload the result to the configured object store")
}

// load reads the config, applies the flag overrides and builds the logger
// for the named command.
func load(opts *options, command string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if command == "modelerd" {
		command = "generate"
	}
	return cfg, logger.New(&cfg.Log).With().Str("command", command).Logger(), nil
}

func (o *options) apply(cfg *config.Config) {
	if o.manifest != "" {
		cfg.Metadata.Manifest = o.manifest
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.out != "" {
		cfg.Output.Path = o.out
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.addr != "" {
		cfg.Server.Addr = o.addr
	}
	if o.publish {
		cfg.Publish.Enabled = true
	}
}
