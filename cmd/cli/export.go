package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/app"
	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/internal/infrastructure"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

// exportDatasetCmd runs locally; it does not need the server
var exportDatasetCmd = &cobra.Command{
	Use:   "export-dataset",
	Short: "Export a labeled image dataset as {label}_{index}.jpg files",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configFile)
		if err != nil {
			return err
		}
		dataset := config.Dataset
		applyExportFlags(cmd, &dataset)

		log := logger.NewDefault()
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := infrastructure.NewHuggingFaceSource(&dataset, nil, log)
		exporter := app.NewDatasetExporter(source, dataset.LabelNames, dataset.Quality, log)

		log.Info("Exporting dataset",
			zap.String("dataset", dataset.Name),
			zap.String("output_dir", dataset.OutputDir))

		result, err := exporter.Export(ctx, dataset.OutputDir)
		if result != nil {
			printExportResult(result)
		}
		if err != nil {
			return err
		}

		notifier := infrastructure.NewNotificationService(&config.Notification, log)
		notifier.NotifyExportCompleted(dataset.Name, result.Total)
		return nil
	},
}

func applyExportFlags(cmd *cobra.Command, dataset *domain.DatasetConfig) {
	flags := cmd.Flags()
	if flags.Changed("dataset") {
		dataset.Name, _ = flags.GetString("dataset")
	}
	if flags.Changed("output") {
		dataset.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("labels") {
		dataset.LabelNames, _ = flags.GetStringSlice("labels")
	}
	if flags.Changed("quality") {
		dataset.Quality, _ = flags.GetInt("quality")
	}
}

func printExportResult(result *app.ExportResult) {
	splits := make([]string, 0, len(result.Splits))
	for split := range result.Splits {
		splits = append(splits, split)
	}
	sort.Strings(splits)

	for _, split := range splits {
		fmt.Printf("  %-12s %d images\n", split, result.Splits[split])
	}
	fmt.Printf("Total: %d images\n", result.Total)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gdl-bridge", "config.yaml"), nil
}

func init() {
	exportDatasetCmd.Flags().String("dataset", "", "Dataset name on the hub (default from config)")
	exportDatasetCmd.Flags().StringP("output", "o", "", "Output directory (default from config)")
	exportDatasetCmd.Flags().StringSlice("labels", nil, "Label names by numeric label, e.g. cat,dog")
	exportDatasetCmd.Flags().Int("quality", 0, "JPEG quality 1-100")
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}
