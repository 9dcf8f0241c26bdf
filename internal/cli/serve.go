package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowpanel/flowpanel/pkg/flow"
	flowio "github.com/flowpanel/flowpanel/pkg/io"
	"github.com/flowpanel/flowpanel/pkg/transport"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 5 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	config     string // config file path (empty = XDG default)
	addr       string // listen address
	debounceMs int    // drag coalescing quiet period in milliseconds
	queueSize  int    // per-session outbound queue bound
	graph      string // node-link JSON file loaded at startup
	noCache    bool   // disable the render result cache
}

// serveCommand creates the serve command running the synchronization server.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the graph synchronization server",
		Long: `Serve the canonical graph model over HTTP. Canvas clients connect via
WebSocket at /ws and receive an initial sync plus incremental updates;
/graph exposes node-link JSON import and export, and /render.svg returns
a diagram of the current graph.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.config)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &cfg, opts)
			return c.runServe(cmd.Context(), cfg, opts.noCache)
		},
	}

	cmd.Flags().StringVar(&opts.config, "config", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().IntVar(&opts.debounceMs, "debounce", 0, "drag coalescing quiet period in milliseconds")
	cmd.Flags().IntVar(&opts.queueSize, "queue", 0, "per-session outbound message queue size")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "node-link JSON file to load at startup")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render result cache")

	return cmd
}

// applyServeFlags overlays explicitly set flags onto the config.
func applyServeFlags(cmd *cobra.Command, cfg *Config, opts serveOpts) {
	if cmd.Flags().Changed("addr") {
		cfg.Addr = opts.addr
	}
	if cmd.Flags().Changed("debounce") {
		cfg.DebounceMs = opts.debounceMs
	}
	if cmd.Flags().Changed("queue") {
		cfg.QueueSize = opts.queueSize
	}
	if cmd.Flags().Changed("graph") {
		cfg.Graph = opts.graph
	}
}

// runServe builds the engine, optionally seeds it from a graph file, and
// serves until the context is cancelled.
func (c *CLI) runServe(ctx context.Context, cfg Config, noCache bool) error {
	f := flow.New(flow.Options{
		Logger:    c.Logger,
		Debounce:  cfg.Debounce(),
		QueueSize: cfg.QueueSize,
	})

	if cfg.Graph != "" {
		g, err := flowio.ImportJSON(cfg.Graph)
		if err != nil {
			return err
		}
		if err := f.FromGraph(g); err != nil {
			return err
		}
		c.Logger.Info("graph loaded", "file", cfg.Graph, "nodes", len(g.Nodes), "edges", len(g.Edges))
	}

	renderCache := newCache(noCache)
	defer renderCache.Close() //nolint:errcheck

	srv := transport.NewServer(f, transport.Options{
		Addr:   cfg.Addr,
		Logger: c.Logger,
		Cache:  renderCache,
	})

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	c.Logger.Info("serving", "addr", cfg.Addr)
	fmt.Fprintln(os.Stderr, StyleDim.Render("press ctrl+c to stop"))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}
