package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodcam/internal/config"
	"github.com/teslashibe/go-moodcam/internal/models"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Download configured model URLs into the cache and print local paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := resolveModels(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "detector:   %s\n", resolved.Detector.ModelPath)
		fmt.Fprintf(cmd.OutOrStdout(), "classifier: %s\n", resolved.Classifier.ModelPath)
		if resolved.Classifier.LabelsPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "labels:     %s\n", resolved.Classifier.LabelsPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

// resolveModels replaces model references in c with local paths.
func resolveModels(ctx context.Context, c config.Config) (config.Config, error) {
	r := models.NewResolver(c.Models.CacheDir)
	refs := []*string{
		&c.Detector.ModelPath,
		&c.Classifier.ModelPath,
		&c.Classifier.ConfigPath,
		&c.Classifier.LabelsPath,
	}
	for _, ref := range refs {
		path, err := r.Resolve(ctx, *ref)
		if err != nil {
			return c, err
		}
		*ref = path
	}
	return c, nil
}

// openModels loads the detector and classifier named by c. The caller
// owns both.
func openModels(ctx context.Context, c config.Config) (detection.Detector, emotions.Classifier, error) {
	c, err := resolveModels(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	labels, err := emotions.LoadLabels(c.Classifier.LabelsPath)
	if err != nil {
		return nil, nil, err
	}

	det, err := detection.New(c.Detector)
	if err != nil {
		return nil, nil, fmt.Errorf("open detector: %w", err)
	}
	cls, err := emotions.NewNetClassifier(c.Classifier, labels)
	if err != nil {
		det.Close()
		return nil, nil, fmt.Errorf("open classifier: %w", err)
	}
	return det, cls, nil
}

// loadLabels reads the label set the classifier will use.
func loadLabels(ctx context.Context, c config.Config) (emotions.Labels, error) {
	r := models.NewResolver(c.Models.CacheDir)
	path, err := r.Resolve(ctx, c.Classifier.LabelsPath)
	if err != nil {
		return emotions.Labels{}, err
	}
	return emotions.LoadLabels(path)
}
