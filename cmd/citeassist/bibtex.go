package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeassist/internal/bibtex"
)

var bibtexCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Print the BibTeX entry for a set of citation fields",
	Long: `Bibtex formats citation fields the same way annotate does and prints
the entry to stdout. Nothing is rendered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldsPath, _ := cmd.Flags().GetString("fields")
		overrides, _ := cmd.Flags().GetStringArray("field")

		fields, err := readFields(fieldsPath, overrides)
		if err != nil {
			return err
		}
		text, err := bibtex.Format(fields)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	bibtexCmd.Flags().String("fields", "", "YAML or JSON file with citation fields")
	bibtexCmd.Flags().StringArray("field", nil, "citation field as name=value (repeatable)")

	rootCmd.AddCommand(bibtexCmd)
}
