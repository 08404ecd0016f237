package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfimages/pkg/images"
)

var (
	firstPage  int
	lastPage   int
	strategies []string
	workers    int
	timeout    time.Duration
	outputDir  string
)

var extractCmd = &cobra.Command{
	Use:   "extract <PDF-file> [image-root]",
	Short: "Write every embedded image to a file",
	Long: `Extract writes one file per image record: <image-root>-NNN.png for
decoded and placeholder images, <image-root>-NNN.jpg for JPEG streams.

The image root defaults to output.prefix inside output.dir.

Examples:
  pdfimages extract report.pdf
  pdfimages extract report.pdf out/report
  pdfimages extract -f 2 -l 3 --strategy fallback report.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().IntVarP(&firstPage, "first", "f", 1, "first page for the fallback strategy")
	extractCmd.Flags().IntVarP(&lastPage, "last", "l", 0, "last page for the fallback strategy (0 = last page)")
	extractCmd.Flags().StringSliceVar(&strategies, "strategy", nil, "strategies to run (objects, fallback)")
	extractCmd.Flags().IntVar(&workers, "workers", 0, "parallel image decoders (0 = one per CPU)")
	extractCmd.Flags().DurationVar(&timeout, "async-timeout", 0, "wait for asynchronous pixel objects")
	extractCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")

	rootCmd.AddCommand(extractCmd)
}

// applyFlags copies explicitly set flags over the configuration
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("first") {
		cfg.Fallback.FirstPage = firstPage
	}
	if flags.Changed("last") {
		cfg.Fallback.LastPage = lastPage
	}
	if flags.Changed("strategy") {
		cfg.Strategies = strategies
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("async-timeout") {
		cfg.Fallback.AsyncTimeout = timeout
	}
	if flags.Changed("output") {
		cfg.Output.Dir = outputDir
	}
	return cfg.Validate()
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	root := filepath.Join(cfg.Output.Dir, cfg.Output.Prefix)
	if len(args) == 2 {
		root = args[1]
	}
	if dir := filepath.Dir(root); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	opts := cfg.ExtractOptions()
	opts.Logger = log.With().Str("file", filepath.Base(args[0])).Logger()

	records, err := images.Extract(cmd.Context(), data, opts)
	if err != nil {
		return err
	}

	written := 0
	for i, rec := range records {
		filename := fmt.Sprintf("%s-%03d.%s", root, i, extension(rec))
		if err := writeRecord(filename, rec); err != nil {
			log.Warn().Err(err).Str("name", rec.SourceName).Msg("could not write image")
			continue
		}
		written++
		log.Debug().
			Str("path", filename).
			Str("name", rec.SourceName).
			Int("page", rec.SourcePage).
			Str("strategy", rec.Strategy).
			Str("status", rec.Status.String()).
			Str("digest", rec.Digest()).
			Msg("image written")
	}
	fmt.Printf("Extracted %d images\n", written)
	return nil
}

func extension(rec images.Record) string {
	if rec.Format == images.FormatJPEG {
		return "jpg"
	}
	return "png"
}

func writeRecord(filename string, rec images.Record) error {
	if rec.Format == images.FormatJPEG {
		return os.WriteFile(filename, rec.Encoded, 0644)
	}

	img, err := rec.Image()
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
