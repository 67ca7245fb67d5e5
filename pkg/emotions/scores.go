package emotions

import (
	"context"
	"fmt"
	"image"
	"sort"
)

// Unknown is reported when no score matches the label set.
const Unknown = "Unknown"

// Scores maps labels to probabilities in [0,1]. Scores are only compared,
// so they need not sum to 1.
type Scores map[string]float64

// Prediction is the dominant label of one face.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// String formats the prediction as "Label (NN.N%)".
func (p Prediction) String() string {
	return Format(p.Label, p.Confidence)
}

// Ranked is one entry of a full score distribution.
type Ranked struct {
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Percent string  `json:"percent"` // "NN.N%"
}

// Classifier scores a cropped face image against a fixed label set.
// normalize is forwarded to the backend's preprocessing.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, normalize bool) (Scores, error)

	// Close releases resources
	Close() error
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, img image.Image, normalize bool) (Scores, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, img image.Image, normalize bool) (Scores, error) {
	return f(ctx, img, normalize)
}

// Close is a no-op.
func (f ClassifierFunc) Close() error { return nil }

// Dominant returns the label with the strictly highest score. Ties go to the
// label that comes first in labels. Scores for labels outside the set are
// ignored; if nothing matches, it returns Unknown with confidence 0.
func Dominant(scores Scores, labels Labels) Prediction {
	best := Prediction{Label: Unknown}
	found := false

	for _, name := range labels.names {
		s, ok := scores[name]
		if !ok {
			continue
		}
		if !found || s > best.Confidence {
			best = Prediction{Label: name, Confidence: s}
			found = true
		}
	}

	return best
}

// Format renders a label and a [0,1] confidence as "Label (NN.N%)".
func Format(label string, confidence float64) string {
	return fmt.Sprintf("%s (%s)", label, Percent(confidence))
}

// Percent renders a [0,1] value as "NN.N%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// Rank returns the full distribution sorted by descending score. Equal
// scores keep label order.
func Rank(scores Scores, labels Labels) []Ranked {
	ranked := make([]Ranked, 0, len(scores))
	for _, name := range labels.names {
		if s, ok := scores[name]; ok {
			ranked = append(ranked, Ranked{Label: name, Score: s, Percent: Percent(s)})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
