package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"pkt.systems/version"

	moinmoin "github.com/escapewindow/ep-moinmoin-export"
	"github.com/escapewindow/ep-moinmoin-export/internal/config"
	"github.com/escapewindow/ep-moinmoin-export/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func init() {
	version.SetDefaultModule("github.com/escapewindow/ep-moinmoin-export")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "moinexport",
		Short:         "Export Etherpad pads as MoinMoin wiki markup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags(), cmd.ErrOrStderr())
		},
	}
	root.SetUsageTemplate(fmt.Sprintf("%s %s\n", version.Module(), version.Current()) + root.UsageTemplate())

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "Config file (default searches ~/.config/moinexport, ~ and .)")
	pf.String("store", config.StoreBolt, "Pad store: memory|bolt|sqlite|http")
	pf.String("db", "", "Database path for the bolt and sqlite stores")
	pf.String("etherpad-url", "", "Etherpad base URL for the http store")
	pf.String("fixture", "", "YAML pad fixture file for the memory store")
	pf.String("log-level", "info", "Log level: debug|info|warn|error")
	pf.String("log-format", "auto", "Log format: auto|text|json")
	pf.Bool("banner", true, "Prefix exports with the generator banner")
	pf.Bool("heading-marker", true, "Drop the line marker character of heading lines")
	pf.Bool("code-marker", false, "Drop the first character of code lines")

	root.AddCommand(
		newExportCmd(a),
		newServeCmd(a),
		newImportCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(flags *pflag.FlagSet, stderr io.Writer) error {
	cfg, err := config.Load(a.cfgFile, flags)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(stderr, level, format)
	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

func (a *app) options() []moinmoin.Option {
	return []moinmoin.Option{
		moinmoin.WithBanner(a.cfg.Banner),
		moinmoin.WithHeadingMarker(a.cfg.HeadingMarker),
		moinmoin.WithCodeMarker(a.cfg.CodeMarker),
		moinmoin.WithLogger(a.logger),
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		rev     int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <pad>",
		Short: "Write a pad as MoinMoin markup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := openStore(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			req := moinmoin.ExportRequest{Store: store, PadID: args[0], Options: a.options()}
			if cmd.Flags().Changed("rev") {
				req.Revision = &rev
			}
			markup, err := moinmoin.Export(cmd.Context(), req)
			if err != nil {
				return err
			}

			writer, closeOut, err := resolveOutput(outPath, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			if closeOut != nil {
				defer func() { _ = closeOut.Close() }()
			}
			if _, err := io.WriteString(writer, markup); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rev, "rev", "r", 0, "Revision to export (default head)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file instead of stdout")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports on /p/{pad}[/{rev}]/export/moinmoin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closer, err := openStore(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()
			return serve(cmd.Context(), a.cfg.Listen, moinmoin.Handler(store, a.options()...), a.logger)
		},
	}
	cmd.Flags().String("listen", ":9001", "Address to listen on")
	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Load .etherpad exports or YAML fixtures into the bolt or sqlite store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openWritable(a.cfg)
			if err != nil {
				return err
			}
			defer backend.Close()
			for _, path := range args {
				ids, err := importFile(cmd.Context(), path, backend)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				for _, id := range ids {
					a.logger.Info("pad imported", "pad", id, "file", path)
				}
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the module version",
		Args:  cobra.NoArgs,
		// version needs neither config nor a logger
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Module(), version.Current())
		},
	}
}

func resolveOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return stdout, nil, nil
	}
	clean := normalizePath(path)
	dir := filepath.Dir(clean)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		return abs
	}
	return path
}
