package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodcam/internal/config"
	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/still"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze every photo dropped into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&outDir, "out", "o", "annotated", "directory for annotated images")
	f.StringVarP(&reportPath, "report", "r", "", "keep a JSON report of everything analyzed in this file")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, c config.Config, dir string, out io.Writer) error {
	a, closeModels, err := newStillAnalyzer(ctx, c)
	if err != nil {
		return err
	}
	defer closeModels()

	var report still.Report
	w := still.NewWatcher(dir, a, func(res *still.Result, err error) {
		if res == nil {
			log.Warn("image failed", "error", err)
			return
		}
		res = report.Add(res.Source, res, err)
		if err != nil && !errors.Is(err, still.ErrNoFace) {
			log.Warn("image failed", "path", res.Source, "error", err)
			return
		}
		path, err := still.SaveAnnotated(res, outDir)
		if err != nil {
			log.Warn("annotated image not saved", "path", res.Source, "error", err)
		}
		fmt.Fprintf(out, "%s -> %s\n%s\n\n", res.Source, path, res.Summary())

		if reportPath != "" {
			if err := report.WriteJSON(reportPath); err != nil {
				log.Warn("report not written", "error", err)
			}
		}
	})
	return w.Run(ctx)
}
