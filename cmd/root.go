package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "citymap",
	Short: "City-radius assignment and salary bucketing for rentals and job offers",
	Long: `Assigns rental listings and job offers to Polish cities by label and by
distance from the city centroid, normalizes offer salaries to PLN, buckets
them into equal-frequency classes, and writes map-ready CSV, JSON, GeoJSON,
shapefile, XLSX, and GeoPackage outputs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
