package still

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Report collects the results of a batch run.
type Report struct {
	Results []*Result `json:"results"`
	Faces   int       `json:"faces"`
	Failed  int       `json:"failed"`
}

// Add records the outcome of analyzing source. Images without faces are
// not failures.
func (r *Report) Add(source string, res *Result, err error) *Result {
	if res == nil {
		res = &Result{Source: source, Faces: []Face{}}
	}
	if err != nil && !errors.Is(err, ErrNoFace) {
		res.Error = err.Error()
		r.Failed++
	}
	r.Results = append(r.Results, res)
	r.Faces += len(res.Faces)
	return res
}

// WriteJSON writes the report to path, indented.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// AnnotatedPath returns where the annotated copy of src goes in outDir.
func AnnotatedPath(src, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, base+annotatedSuffix)
}

const annotatedSuffix = "_faces.png"

// IsAnnotated reports whether path is output of SaveAnnotated.
func IsAnnotated(path string) bool {
	return strings.HasSuffix(path, annotatedSuffix)
}

// SaveAnnotated writes the annotated image of res as PNG and returns its path.
func SaveAnnotated(res *Result, outDir string) (string, error) {
	if res.Annotated == nil {
		return "", nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := AnnotatedPath(res.Source, outDir)
	if err := imaging.Save(res.Annotated, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

const noFaceText = "No face detected"

// Summary renders res as "Face N: Label (NN.N%)" lines.
func (res *Result) Summary() string {
	if len(res.Faces) == 0 {
		return noFaceText
	}
	lines := make([]string, len(res.Faces))
	for i, f := range res.Faces {
		lines[i] = fmt.Sprintf("Face %d: %s", f.Index, f.Prediction)
	}
	return strings.Join(lines, "\n")
}
