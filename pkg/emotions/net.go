package emotions

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/teslashibe/go-moodcam/internal/log"
	"gocv.io/x/gocv"
)

// NetConfig holds classifier network configuration
type NetConfig struct {
	ModelPath   string `mapstructure:"model_path" json:"model_path"`   // ONNX, Caffe or TF model
	ConfigPath  string `mapstructure:"config_path" json:"config_path"` // Optional network description
	LabelsPath  string `mapstructure:"labels_path" json:"labels_path"` // Empty uses the built-in labels
	InputWidth  int    `mapstructure:"input_width" json:"input_width"`
	InputHeight int    `mapstructure:"input_height" json:"input_height"`
	Grayscale   bool   `mapstructure:"grayscale" json:"grayscale"` // Feed a single channel
	Softmax     bool   `mapstructure:"softmax" json:"softmax"`     // Apply softmax to raw logits
}

// DefaultNetConfig returns defaults for a 48x48 grayscale FER model.
func DefaultNetConfig() NetConfig {
	return NetConfig{
		ModelPath:   "models/emotion_ferplus.onnx",
		InputWidth:  48,
		InputHeight: 48,
		Grayscale:   true,
		Softmax:     true,
	}
}

// NetClassifier runs an emotion model through OpenCV's DNN module.
type NetClassifier struct {
	net       gocv.Net
	config    NetConfig
	labels    Labels
	inputSize image.Point
	mu        sync.Mutex
}

// NewNetClassifier loads the model. The label set must match the model's
// output order.
func NewNetClassifier(cfg NetConfig, labels Labels) (*NetClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}
	if labels.Len() == 0 {
		return nil, ErrNoLabels
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load classifier model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &NetClassifier{
		net:       net,
		config:    cfg,
		labels:    labels,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Classify scores img. When normalize is set, pixels are scaled to [0,1]
// before inference.
func (c *NetClassifier) Classify(ctx context.Context, img image.Image, normalize bool) (Scores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	input := mat
	if c.config.Grayscale {
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
		input = gray
	}

	scale := 1.0
	if normalize {
		scale = 1.0 / 255.0
	}

	blob := gocv.BlobFromImage(input, scale, c.inputSize, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	c.mu.Lock()
	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	c.mu.Unlock()
	defer output.Close()

	values, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(values) != c.labels.Len() {
		return nil, fmt.Errorf("%w: %d outputs for %d labels", ErrOutputMismatch, len(values), c.labels.Len())
	}

	probs := make([]float64, len(values))
	for i, v := range values {
		probs[i] = float64(v)
	}
	if c.config.Softmax {
		probs = softmax(probs)
	}

	scores := make(Scores, len(probs))
	for i, p := range probs {
		scores[c.labels.At(i)] = p
	}

	log.Debug("classified face", "label", Dominant(scores, c.labels).Label)
	return scores, nil
}

// Close releases the network.
func (c *NetClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return logits
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		maxV = math.Max(maxV, v)
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
