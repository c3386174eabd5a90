package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeassist/internal/bibtex"
	"github.com/pdiddy/citeassist/internal/latex"
	"github.com/pdiddy/citeassist/pkg/types"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Write a LaTeX bundle for typesetting the sheet in your own document",
	Long: `Bundle writes a zip archive with annotation.sty, annotation.tex and
instructions.md. Authors \input the sheet at the end of their paper and
\usepackage the style to get the same button and link without running
annotate on the compiled PDF.`,
	Args: cobra.NoArgs,
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().String("fields", "", "YAML or JSON file with citation fields")
	bundleCmd.Flags().StringArray("field", nil, "citation field as name=value (repeatable)")
	bundleCmd.Flags().String("related", "", "YAML or JSON file listing related papers")
	bundleCmd.Flags().String("tag", "", "conference tag (default: confacronym field)")
	bundleCmd.Flags().String("sheet-url", "", "link to the hosted copy of the paper")
	bundleCmd.Flags().StringP("output", "o", "citeassist.zip", "output archive")

	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	fieldsPath, _ := cmd.Flags().GetString("fields")
	overrides, _ := cmd.Flags().GetStringArray("field")
	relatedPath, _ := cmd.Flags().GetString("related")
	tag, _ := cmd.Flags().GetString("tag")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	output, _ := cmd.Flags().GetString("output")

	fields, err := readFields(fieldsPath, overrides)
	if err != nil {
		return err
	}
	related, err := readRelated(relatedPath)
	if err != nil {
		return err
	}
	text, err := bibtex.Format(fields)
	if err != nil {
		return err
	}
	if tag == "" {
		tag = fields.Value(types.FieldConference)
	}

	content := latex.Content{
		Citation:    text,
		OfficialURL: fields.Value(types.FieldURL),
		SheetURL:    sheetURL,
	}
	for _, r := range related {
		if s := r.String(); s != "" {
			content.Related = append(content.Related, s)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := latex.Bundle(f, content, tag); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	return nil
}
