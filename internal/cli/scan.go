package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/qrscan/internal/config"
	"github.com/roach88/qrscan/internal/feed"
	"github.com/roach88/qrscan/internal/present"
	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/session"
	"github.com/roach88/qrscan/internal/store"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	Database          string
	OpenSchemes       []string
	RepromptOnDismiss bool
	Prompt            string

	// IDs overrides the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs session.IDGenerator

	// Launcher overrides how accepted URLs are opened (for testing).
	// If nil, defaults to the OS handler.
	Launcher present.Launcher
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	return newScanCommand(&ScanOptions{RootOptions: rootOpts})
}

func newScanCommand(opts *ScanOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [feed-file]",
		Short: "Reconcile a frame feed into presentation commands",
		Long: `Read decode results, one JSON frame per line, and write the resulting
presentation commands to stdout.

A frame lists the codes found in it; the first one wins:
  {"seq": 1, "codes": [{"payload": "https://example.com", "bounds": {"x": 10, "y": 20, "width": 30, "height": 30}}]}
  {"seq": 2, "codes": []}

The feed is read from the named file, or stdin when omitted or "-".
With --db, the session is recorded for later replay and trace.

--prompt ask reads answers from stdin, so it needs a feed file.

Examples:
  qrscan scan frames.jsonl
  camera-decoder | qrscan scan --db ./scans.db
  qrscan scan frames.jsonl --prompt ask --schemes https
  qrscan scan frames.jsonl --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runScan(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the session to this SQLite database")
	cmd.Flags().StringSliceVar(&opts.OpenSchemes, "schemes", nil, "URL schemes offered for opening (default http,https)")
	cmd.Flags().BoolVar(&opts.RepromptOnDismiss, "reprompt", false, "prompt again for a URL after the user dismisses it")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "how prompts are answered (ask|never|always)")

	return cmd
}

// loadConfig loads --config, or the default file when present.
func loadConfig(opts *RootOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// scanConfig resolves the effective config: file, then flags the user set.
func scanConfig(opts *ScanOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("schemes") {
		cfg.OpenSchemes = opts.OpenSchemes
	}
	if flags.Changed("reprompt") {
		cfg.RepromptOnDismiss = opts.RepromptOnDismiss
	}
	if flags.Changed("prompt") {
		cfg.Prompt = opts.Prompt
	}
	if flags.Changed("format") {
		cfg.Output = opts.Format
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func runScan(opts *ScanOptions, path string, cmd *cobra.Command) error {
	cfg, err := scanConfig(opts, cmd)
	if err != nil {
		return err
	}
	if cfg.Prompt == present.PromptAsk && path == "-" {
		return NewExitError(ExitCommandError, "--prompt ask reads answers from stdin; pass the feed as a file")
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open feed", err)
		}
		defer f.Close()
		in = f
	}

	sessOpts := []session.Option{
		session.WithReconciler(cfg.ReconcilerOptions()...),
	}

	hash, cfgJSON, err := cfg.Record()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record config", err)
	}
	sessOpts = append(sessOpts, session.WithConfigRecord(hash, cfgJSON))

	if cfg.Database != "" {
		slog.Debug("opening database", "path", cfg.Database)
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		sessOpts = append(sessOpts, session.WithStore(st))
	}

	confirm, err := present.ConfirmerFor(cfg.Prompt, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid prompt mode", err)
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = present.OSLauncher{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = session.UUIDv7Generator{}
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	// processed counts frames the session has applied. The feed side waits
	// on it so every prompt has been raised before it waits for answers.
	var processed atomic.Int64
	progress := make(chan struct{}, 1)
	sessOpts = append(sessOpts, session.WithObserver(func(session.Step) {
		processed.Add(1)
		select {
		case progress <- struct{}{}:
		default:
		}
	}))

	var sess *session.Session
	prompting := present.NewPrompting(gctx,
		present.NewWriter(cmd.OutOrStdout(), cfg.Output),
		confirm, launcher,
		func(payload string, accepted bool) {
			if !sess.Answer(payload, accepted) {
				slog.Debug("answer after session stopped", "payload", payload)
			}
		},
	)
	sess = session.New(prompting, ids, sessOpts...)
	log := slog.With("session", sess.ID())

	var frames int
	g.Go(func() error {
		return sess.Run(gctx)
	})
	g.Go(func() error {
		defer sess.Stop()

		n, err := feed.Pump(gctx, feed.NewReader(in), sess.Enqueue)
		frames = n
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read feed", err)
		}

		for processed.Load() < int64(n) {
			select {
			case <-progress:
			case <-gctx.Done():
				return nil
			}
		}
		return prompting.Wait()
	})

	runErr := g.Wait()
	if err := prompting.Close(); err != nil && runErr == nil {
		runErr = err
	}

	log.Info("session finished", "frames", frames, "state", describeState(sess))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		var exitErr *ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr
		}
		return WrapExitError(ExitFailure, "scan failed", runErr)
	}

	if errs := sess.Errors(); len(errs) > 0 {
		for _, e := range errs {
			log.Error("session error", "error", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("session finished with %d error(s)", len(errs)))
	}
	return nil
}

func describeState(sess *session.Session) string {
	st := sess.State()
	label := "(none)"
	if st.LastPayload != nil {
		label = scan.UpdateLabel(*st.LastPayload).String()
	}
	return fmt.Sprintf("label=%s prompted=%d", label, len(st.Prompted))
}
