package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/header-mapper/internal/ingest"
	"github.com/sells-group/header-mapper/internal/model"
)

var headersFormat string

var headersCmd = &cobra.Command{
	Use:   "headers <file>",
	Short: "Print the headers and row count of a contact file without mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readTable(args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), headersFormat, headersOutput{
			File:     filepath.Base(args[0]),
			Headers:  table.Headers,
			RowCount: len(table.Rows),
		})
	},
}

type headersOutput struct {
	File     string   `json:"file"`
	Headers  []string `json:"headers"`
	RowCount int      `json:"rowCount"`
}

func readTable(path string) (*model.RawTable, error) {
	if _, err := ingest.DetectFormat(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return ingest.Ingest(data, filepath.Base(path))
}

func init() {
	headersCmd.Flags().StringVar(&headersFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(headersCmd)
}
