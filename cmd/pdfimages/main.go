// pdfimages - PDF image extractor
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfimages/pkg/config"
	"github.com/novvoo/go-pdfimages/pkg/logging"
)

const version = "0.2.0"

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdfimages",
	Short: "Extract embedded images from PDF files",
	Long: `pdfimages rebuilds the raster images embedded in a PDF as PNG files,
combining color data with SMask transparency. JPEG streams are written as
they are stored.

Settings are read from a YAML file (default pdfimages.yaml) after loading
a .env file from the working directory.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pdfimages.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Log.Validate(); err != nil {
		return err
	}
	log = logging.New(cfg.Log, os.Stderr)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
