package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodcam/internal/config"
	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/still"
)

var (
	outDir     string
	reportPath string
)

var stillCmd = &cobra.Command{
	Use:   "still <image>...",
	Short: "Analyze photos and write annotated copies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStill(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func init() {
	f := stillCmd.Flags()
	f.StringVarP(&outDir, "out", "o", "annotated", "directory for annotated images")
	f.StringVarP(&reportPath, "report", "r", "", "write a JSON report to this file")
	f.Int("max-side", still.MaxSide, "scale images so the longest side is this many pixels (0 keeps size)")
	config.Flag(f, "max-side", "still.max_side")

	rootCmd.AddCommand(stillCmd)
}

func newStillAnalyzer(ctx context.Context, c config.Config) (*still.Analyzer, func(), error) {
	labels, err := loadLabels(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	det, cls, err := openModels(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	closeAll := func() {
		det.Close()
		cls.Close()
	}
	return still.New(c.Still, det, cls, labels), closeAll, nil
}

func runStill(ctx context.Context, c config.Config, paths []string, out io.Writer) error {
	a, closeModels, err := newStillAnalyzer(ctx, c)
	if err != nil {
		return err
	}
	defer closeModels()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var report still.Report
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		res, err := a.AnalyzeFile(ctx, path)
		res = report.Add(path, res, err)
		if err != nil && !errors.Is(err, still.ErrNoFace) {
			log.Warn("image failed", "path", path, "error", err)
		}
		if _, err := still.SaveAnnotated(res, outDir); err != nil {
			log.Warn("annotated image not saved", "path", path, "error", err)
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	for _, res := range report.Results {
		fmt.Fprintf(out, "%s\n%s\n\n", res.Source, res.Summary())
	}

	if reportPath != "" {
		if err := report.WriteJSON(reportPath); err != nil {
			return err
		}
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", report.Failed, len(report.Results))
	}
	return nil
}
