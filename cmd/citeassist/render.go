package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <source.tex>",
	Short: "Typeset a LaTeX source through the render backend",
	Long: `Render submits a LaTeX source to the configured backend and writes the
resulting PDF. With the http backend the source is posted to the render
service and the job is polled until the PDF is ready. Use "-" to read the
source from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "output file (default: <source>.pdf, or document.pdf for stdin)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	var (
		source []byte
		err    error
	)
	if args[0] == "-" {
		source, err = io.ReadAll(cmd.InOrStdin())
		if output == "" {
			output = "document.pdf"
		}
	} else {
		source, err = os.ReadFile(args[0])
		if output == "" {
			output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
		}
	}
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	backend, err := newBackend(cfg.Render)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, job, err := backend.Render(ctx, source)
	if err != nil {
		if job != nil && job.JobID != "" {
			return fmt.Errorf("render job %s after %d attempt(s): %w", job.JobID, job.Attempts, err)
		}
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes, %d attempt(s), %s)\n",
		output, len(data), job.Attempts, job.Elapsed().Round(time.Millisecond))
	return nil
}
