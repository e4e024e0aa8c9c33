// Command nettop shows per-process, per-socket network traffic live,
// sourced from a kernel probe (or a recorded replay file) and rendered
// through the windowed store and bubbletea UI in this module.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/config"
	"github.com/ftahirops/nettop/internal/filter"
	"github.com/ftahirops/nettop/internal/ingest"
	"github.com/ftahirops/nettop/internal/logging"
	"github.com/ftahirops/nettop/internal/metrics"
	"github.com/ftahirops/nettop/internal/source"
	"github.com/ftahirops/nettop/internal/source/kprobe"
	"github.com/ftahirops/nettop/internal/store"
	"github.com/ftahirops/nettop/ui"
)

var (
	backlogSecs  int
	intervalMs   int
	msgBufferCap int
	refreshMs    int
	filterFlag   string
	promAddr     string
	verbose      bool
)

func main() {
	root := &cobra.Command{
		Use:   "nettop",
		Short: "Per-process network traffic observer",
		Long: `nettop attaches kernel probes to TCP and UDP send/receive paths and
renders a live, filterable table of per-socket traffic rates alongside
a scrolling bandwidth chart.`,
		RunE: run,
	}

	cfg := config.Load()
	root.PersistentFlags().IntVar(&backlogSecs, "backlog-secs", cfg.BacklogSecs, "seconds of history retained for the chart and rate window")
	root.PersistentFlags().IntVar(&intervalMs, "interval-ms", cfg.IntervalMs, "segment window size in milliseconds (floor 10)")
	root.PersistentFlags().IntVar(&msgBufferCap, "msg-buffer-capacity", cfg.MsgBufferCap, "per-CPU batch size read from the probe")
	root.PersistentFlags().IntVar(&refreshMs, "ui-refresh-rate-ms", cfg.UIRefreshRateMs, "UI redraw interval in milliseconds")
	root.PersistentFlags().StringVar(&filterFlag, "filter", cfg.DefaultFilter, "initial filter expression")
	root.PersistentFlags().StringVar(&promAddr, "prom-addr", "", "if set, serve Prometheus metrics on this address instead of the config file's prometheus.addr")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newReplayCmd())
	root.AddCommand(newRecordCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cfg.BacklogSecs = backlogSecs
	cfg.IntervalMs = intervalMs
	cfg.MsgBufferCap = msgBufferCap
	cfg.UIRefreshRateMs = refreshMs
	cfg.DefaultFilter = filterFlag
	if promAddr != "" {
		cfg.Prometheus.Enabled = true
		cfg.Prometheus.Addr = promAddr
	}

	logger := logging.New(verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	numCPU := runtime.NumCPU()
	src, err := kprobe.Open(ctx, numCPU, cfg.MsgBufferCap)
	if err != nil {
		return fmt.Errorf("nettop: open kernel probe: %w", err)
	}
	defer src.Close()

	return runWithSource(ctx, cfg, logger, src)
}

// runWithSource wires a Source into the store, ingest pipeline, optional
// metrics server and the bubbletea program; shared by the live kprobe
// command and the replay subcommand.
func runWithSource(ctx context.Context, cfg config.Config, logger *slog.Logger, src source.Source) error {
	if cfg.DefaultFilter != "" {
		if _, err := filter.Parse(cfg.DefaultFilter); err != nil {
			return fmt.Errorf("nettop: --filter: %w", err)
		}
	}

	clk := clock.New()
	st := store.New(cfg.Interval(), cfg.Capacity())

	// rec stays a nil *metrics.Recorder when Prometheus export is off; its
	// methods are nil-receiver safe, so store/ingest need no extra check.
	var rec *metrics.Recorder
	if cfg.Prometheus.Enabled {
		rec = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		srv := &http.Server{Addr: cfg.Prometheus.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server exited", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	st.SetRecorder(rec)
	pipeline := ingest.New(src, st, clk, logger)
	pipeline.SetRecorder(rec)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(gctx) })

	program := tea.NewProgram(ui.NewModel(st, clk, cfg), tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		_, err := program.Run()
		cancel()
		return err
	})

	// When the ingest pipeline exits (source closed) but the UI is still
	// running, nothing more arrives in the store; the UI keeps showing
	// its last snapshot until the user quits. When the UI quits first,
	// cancel gctx so the pipeline unwinds too.
	go func() {
		<-gctx.Done()
		program.Quit()
	}()

	err := g.Wait()
	if err != nil && gctx.Err() != nil {
		return nil
	}
	return err
}
