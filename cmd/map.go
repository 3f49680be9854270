package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sells-group/header-mapper/internal/mapping"
	"github.com/sells-group/header-mapper/internal/model"
	"github.com/sells-group/header-mapper/internal/report"
	"github.com/sells-group/header-mapper/internal/resilience"
)

var (
	mapFormat  string
	mapRetries int
)

var mapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Map the headers of a contact file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if mapRetries > 0 {
			cfg.Retry.MaxAttempts = mapRetries + 1
		}
		if err := cfg.Validate("map"); err != nil {
			return err
		}

		instr, err := loadInstruction(cmd.Context())
		if err != nil {
			return err
		}

		out, err := mapFile(cmd.Context(), newMapper(instr, nil), args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), mapFormat, out)
	},
}

type mapOutput struct {
	File     string               `json:"file"`
	RowCount int                  `json:"rowCount"`
	Result   *model.MappingResult `json:"result"`
	Stats    model.Stats          `json:"stats"`
	Report   report.Report        `json:"report"`
}

// mapFile ingests path and maps its headers, retrying transient service
// failures and timeouts per cfg.Retry.
func mapFile(ctx context.Context, mapper *mapping.Mapper, path string) (*mapOutput, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
	retry.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || errors.Is(err, mapping.ErrTimeout)
	}
	retry.OnRetry = resilience.RetryLogger(filepath.Base(path), len(table.Headers))

	result, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.MappingResult, error) {
		return mapper.Map(ctx, table.Headers)
	})
	if err != nil {
		return nil, err
	}

	return &mapOutput{
		File:     filepath.Base(path),
		RowCount: len(table.Rows),
		Result:   result,
		Stats:    mapping.Summarize(result),
		Report:   report.Build(table, result),
	}, nil
}

func init() {
	mapCmd.Flags().StringVar(&mapFormat, "format", "json", "output format: json or yaml")
	mapCmd.Flags().IntVar(&mapRetries, "retries", 0, "retries for transient service failures (default from config)")
	rootCmd.AddCommand(mapCmd)
}
