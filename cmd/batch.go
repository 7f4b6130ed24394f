package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/domain-intel/internal/analysis"
	"github.com/sells-group/domain-intel/internal/batch"
	"github.com/sells-group/domain-intel/internal/fetcher"
	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.csv|file.xlsx>",
	Short: "Analyze every email in a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "batch: read file")
		}
		table, err := fetcher.ParseUpload(path, data)
		if err != nil {
			return eris.Wrap(err, "batch: parse file")
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "batch: open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "batch: migrate store")
		}

		an, err := buildAnalyzer(ctx)
		if err != nil {
			return eris.Wrap(err, "batch: build analyzer")
		}

		b := normalize.New(st, cacheWindow()).Normalize(ctx, table)
		report := b.Report
		fmt.Printf("Rows: %d, valid: %d, invalid: %d, duplicates: %d, already analyzed: %d, to process: %d\n",
			report.TotalRows, report.ValidEmails, report.InvalidEmails,
			report.DuplicatesRemoved, report.AlreadyAnalyzed, report.NewEmails)
		if len(b.Emails) == 0 {
			fmt.Println("Nothing to process.")
			return nil
		}

		resolver := analysis.NewService(st, an, cacheWindow())
		runner := batch.NewRunner(resolver, st, recentWindow(),
			cfg.Batch.ProgressEvery, cfg.Batch.SummaryTail)
		summary := runner.Run(ctx, b.Emails, consoleNotifier{})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// consoleNotifier prints batch progress to stdout instead of a chat session.
type consoleNotifier struct{}

func (consoleNotifier) Notify(content string, _ map[string]any) model.Message {
	fmt.Println(content)
	return model.Message{}
}

func (consoleNotifier) UpdateStatus(_ model.ProcessingStatus) {}

func init() {
	rootCmd.AddCommand(batchCmd)
}
