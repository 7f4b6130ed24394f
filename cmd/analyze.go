package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/domain-intel/internal/analysis"
	"github.com/sells-group/domain-intel/internal/normalize"
)

var analyzeForceRefresh bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <email>",
	Short: "Analyze a single email's domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := normalize.Clean(args[0])
		if !normalize.Valid(email) {
			return eris.Errorf("invalid email address: %q", args[0])
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze: open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "analyze: migrate store")
		}

		an, err := buildAnalyzer(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze: build analyzer")
		}

		rec := analysis.NewService(st, an, cacheWindow()).
			Resolve(ctx, email, analyzeForceRefresh)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForceRefresh, "force-refresh", false, "bypass the cache and re-run the pipeline")
	rootCmd.AddCommand(analyzeCmd)
}
