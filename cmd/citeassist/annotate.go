package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeassist/internal/pdf"
	"github.com/pdiddy/citeassist/internal/sheet"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <paper.pdf>",
	Short: "Append a citation sheet to a PDF",
	Long: `Annotate formats the citation fields as a BibTeX entry, renders the
citation sheet, appends it to the paper and links it from a button in the
top-right corner of the first page. When the render service fails the sheet
is drawn locally and the result is reported as degraded.

Fields come from a YAML or JSON file (--fields) and/or repeated
--field name=value flags. entryType and referenceKey are required.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().String("fields", "", "YAML or JSON file with citation fields")
	annotateCmd.Flags().StringArray("field", nil, "citation field as name=value (repeatable)")
	annotateCmd.Flags().String("related", "", "YAML or JSON file listing related papers")
	annotateCmd.Flags().String("tag", "", "conference tag printed on the first page (default: confacronym field)")
	annotateCmd.Flags().String("sheet-url", "", "link to the hosted copy of the paper")
	annotateCmd.Flags().StringP("output", "o", "", "output file (default: <paper>-cited.pdf)")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	fieldsPath, _ := cmd.Flags().GetString("fields")
	overrides, _ := cmd.Flags().GetStringArray("field")
	relatedPath, _ := cmd.Flags().GetString("related")
	tag, _ := cmd.Flags().GetString("tag")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	output, _ := cmd.Flags().GetString("output")

	input := args[0]
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "-cited.pdf"
	}

	fields, err := readFields(fieldsPath, overrides)
	if err != nil {
		return err
	}
	related, err := readRelated(relatedPath)
	if err != nil {
		return err
	}
	doc, err := pdf.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := p.producer.Produce(ctx, doc, sheet.Request{
		Fields:   fields,
		Related:  related,
		Tag:      tag,
		SheetURL: sheetURL,
	})
	if err != nil {
		return fmt.Errorf("annotating %s (stage %s): %w", input, res.Stage, err)
	}
	if err := os.WriteFile(output, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	out := cmd.OutOrStdout()
	mode := "rendered"
	if res.Degraded {
		mode = "fallback (degraded)"
	}
	fmt.Fprintf(out, "Wrote %s: %d pages, citation sheet %s, id %s\n", output, res.Pages, mode, res.ID)
	fmt.Fprintln(out, res.Text)
	return nil
}
