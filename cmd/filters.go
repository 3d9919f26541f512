package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/filtering"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the filter steps applied before scoring",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()

		engine := newEngine(cmd, config, logger)
		if err := writeJSON(os.Stdout, filtering.Describe(engine.Filters())); err != nil {
			logger.Fatal("writing filters", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)

	filtersCmd.Flags().Bool("keep-duplicates", false, "show the chain as match --keep-duplicates would run it")
}
