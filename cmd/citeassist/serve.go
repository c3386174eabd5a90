package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeassist/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP relay and annotation server",
	Long: `Serve exposes POST /latex/process (relay a LaTeX source to the render
service and return the PDF), POST /annotate (append a citation sheet to an
uploaded PDF) and GET /testAPI. It shuts down gracefully on SIGINT or
SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :9000)")
	mustBindLocal(serveCmd, "server.addr", "addr")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, p.backend, p.producer, logger)
	return srv.ListenAndServe(ctx)
}
