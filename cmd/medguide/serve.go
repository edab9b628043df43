package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/medguide/internal/mcpserver"
	"github.com/FranksOps/medguide/internal/metrics"
)

var serveHTTP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the guideline search as an MCP tool",
	Long: `Serve search_medical_guidelines and list_guideline_sources over MCP.
By default the server speaks MCP on stdin/stdout. With --http it serves
streamable HTTP on server.addr, with GET /health alongside.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "serve MCP over streamable HTTP instead of stdio")
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("metrics-addr", "", "Prometheus /metrics listen address (disabled when empty)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.metrics_addr", serveCmd.Flags().Lookup("metrics-addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcpserver.NewServer(a.orchestrator, a.logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		g.Go(func() error {
			return metrics.NewServer(addr).Run(ctx, a.logger)
		})
	}

	g.Go(func() error {
		if serveHTTP {
			return srv.RunHTTP(ctx, a.cfg.Server.Addr)
		}
		a.logger.Info("serving MCP on stdio")
		return srv.Run(ctx)
	})

	return g.Wait()
}
