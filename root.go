package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blob2spo/blob2spo/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is the subset of persistent flags commands read after pre-run.
type CLIFlags struct {
	Verbose bool
	Quiet   bool
}

// CLIContext is built once by PersistentPreRunE and carried on the command
// context. Commands retrieve it with mustCLIContext.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run. A missing
// context is a wiring bug, not a user error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("blob2spo: command run without CLI context")
	}

	return cc
}

// skipConfigCommands lists commands that must work even when the config file
// is broken. Matched on CommandPath().
var skipConfigCommands = map[string]bool{
	"blob2spo config init": true,
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob2spo",
		Short: "Copy blobs into SharePoint Online",
		Long: `Stream a blob from Azure Blob Storage, Amazon S3 or the local disk into a
SharePoint Online document library. Small files are written in one request,
larger ones through a chunked upload session.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				cmd.SetContext(withCLIContext(cmd.Context(), &CLIContext{
					Flags:  currentFlags(),
					Logger: bootstrapLogger(os.Stderr),
				}))

				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newCopyCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func currentFlags() CLIFlags {
	return CLIFlags{Verbose: flagVerbose, Quiet: flagQuiet}
}

func withCLIContext(parent context.Context, cc *CLIContext) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	return context.WithValue(parent, cliContextKey{}, cc)
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores a CLIContext on the command.
func loadConfig(cmd *cobra.Command) error {
	boot := bootstrapLogger(os.Stderr)

	cli, err := cliOverrides(cmd)
	if err != nil {
		return err
	}

	env := config.ReadEnvOverrides(boot)

	resolved, err := config.Resolve(env, cli, boot)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := currentFlags()

	cmd.SetContext(withCLIContext(cmd.Context(), &CLIContext{
		Flags:  flags,
		Cfg:    resolved,
		Logger: buildLogger(resolved, flags, os.Stderr),
	}))

	return nil
}

// cliOverrides collects the config-backed flags the user set explicitly on
// the running subcommand. Flags a subcommand does not define are skipped.
func cliOverrides(cmd *cobra.Command) (config.CLIOverrides, error) {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	changed := func(name string) (string, bool) {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}

		return f.Value.String(), true
	}

	if v, ok := changed("chunk-size"); ok {
		cli.ChunkSize = &v
	}

	if v, ok := changed("spo-domain"); ok {
		cli.SPODomain = &v
	}

	if v, ok := changed("spo-site"); ok {
		cli.SPOSite = &v
	}

	if v, ok := changed("spo-path"); ok {
		cli.SPOPath = &v
	}

	if v, ok := changed("port"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cli, fmt.Errorf("invalid --port %q: %w", v, err)
		}

		cli.Port = &port
	}

	return cli, nil
}

// bootstrapLogger is used while the config itself is being loaded. It only
// knows the CLI flags: warnings by default, debug with --verbose.
func bootstrapLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates the command logger. The config file level provides the
// baseline; --verbose and --quiet override it because CLI flags always win.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	format := "text"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
