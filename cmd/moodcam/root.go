package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodcam/internal/config"
	"github.com/teslashibe/go-moodcam/internal/log"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	v          = config.New()
	cfg        config.Config

	// dashboard receives a copy of every log line once the web server
	// exists.
	dashboard = &switchWriter{}
)

var rootCmd = &cobra.Command{
	Use:           "moodcam",
	Short:         "Face detection and emotion classification for cameras and photos",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		log.InitWriter(cfg.LogLevel, io.MultiWriter(os.Stderr, dashboard))
		log.Debug("config loaded", "file", v.ConfigFileUsed())
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default: ./moodcam.yaml if present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("detector", "yunet", "face detector backend: yunet or pigo")
	pf.String("detector-model", "", "detector model path or URL")
	pf.String("classifier-model", "", "emotion model path or URL")
	pf.String("labels", "", "label file, one label per line (default: built-in)")
	pf.String("color-mode", "gray", "crop color mode: gray or color")

	config.Flag(pf, "log-level", "log_level")
	config.Flag(pf, "detector", "detector.backend")
	config.Flag(pf, "detector-model", "detector.model_path")
	config.Flag(pf, "classifier-model", "classifier.model_path")
	config.Flag(pf, "labels", "classifier.labels_path")
	config.Flag(pf, "color-mode", "pipeline.color_mode")
}

// switchWriter forwards writes to a target that can be set later.
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	w := s.w
	s.mu.RUnlock()
	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}
