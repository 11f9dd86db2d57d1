// multiship drives the multi-address cart walkthrough against a commerce
// platform project and records every API response as a snapshot file.
//
//	multiship run            # execute the full walkthrough
//	multiship run -o ./out   # write snapshots elsewhere
//
// Configuration comes from CONFIG_FILE or CTP_* environment variables;
// see internal/config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"multiship/internal/artifact"
	"multiship/internal/commercetools"
	"multiship/internal/config"
	"multiship/internal/scenario"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "multiship",
		Short:         "drive the multi-address cart walkthrough",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	var artifactDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "execute the walkthrough and record snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), artifactDir)
		},
	}
	cmd.Flags().StringVarP(&artifactDir, "artifacts", "o", "", "snapshot output directory (overrides config)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func run(ctx context.Context, artifactDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if artifactDir != "" {
		cfg.ArtifactDir = artifactDir
	}

	logger := initLogger(cfg)
	logger.Info("configuration loaded",
		slog.String("project_key", cfg.Platform.ProjectKey),
		slog.String("api_url", cfg.Platform.APIURL),
		slog.String("artifact_dir", cfg.ArtifactDir),
	)

	client, err := commercetools.New(commercetools.Config{
		APIURL:       cfg.Platform.APIURL,
		ProjectKey:   cfg.Platform.ProjectKey,
		TokenURL:     cfg.TokenURL(),
		ClientID:     cfg.Platform.ClientID,
		ClientSecret: cfg.Platform.ClientSecret,
		Scope:        cfg.Platform.Scope,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	sink, err := artifact.NewDir(cfg.ArtifactDir)
	if err != nil {
		return err
	}

	cart, err := scenario.Run(ctx, client, sink, logger)
	if err != nil {
		return err
	}

	logger.Info("walkthrough completed",
		slog.String("cart", cart.ID),
		slog.Int64("version", cart.Version),
		slog.String("total", cart.TotalPrice.String()),
	)
	for _, li := range cart.LineItems {
		targets := 0
		if li.ShippingDetails != nil {
			targets = len(li.ShippingDetails.Targets)
		}
		logger.Info("line item",
			slog.String("id", li.ID),
			slog.Int64("quantity", li.Quantity),
			slog.Int("shipping_targets", targets),
		)
	}

	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format, development text format.
func initLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
