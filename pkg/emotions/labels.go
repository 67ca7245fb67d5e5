// Package emotions holds the emotion label set, classifier backends and the
// helpers that turn a score distribution into a dominant label.
package emotions

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed data/labels.txt
var defaultLabels []byte

// Labels is an ordered, immutable set of emotion labels. The order decides
// ties in Dominant and must match the classifier's output order.
type Labels struct {
	names []string
	index map[string]int
}

// NewLabels builds a label set. Names must be non-empty and unique.
func NewLabels(names ...string) (Labels, error) {
	if len(names) == 0 {
		return Labels{}, ErrNoLabels
	}

	l := Labels{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return Labels{}, fmt.Errorf("%w: blank label", ErrInvalidLabels)
		}
		if _, dup := l.index[n]; dup {
			return Labels{}, fmt.Errorf("%w: duplicate label %q", ErrInvalidLabels, n)
		}
		l.index[n] = len(l.names)
		l.names = append(l.names, n)
	}
	return l, nil
}

// DefaultLabels returns the built-in seven-emotion label set.
func DefaultLabels() Labels {
	l, err := parseLabels(defaultLabels)
	if err != nil {
		panic(fmt.Sprintf("embedded labels: %v", err))
	}
	return l
}

// LoadLabels reads one label per line from path. Blank lines and lines
// starting with # are skipped. An empty path returns DefaultLabels.
func LoadLabels(path string) (Labels, error) {
	if path == "" {
		return DefaultLabels(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("failed to read labels file: %w", err)
	}
	return parseLabels(data)
}

func parseLabels(data []byte) (Labels, error) {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return Labels{}, err
	}
	return NewLabels(names...)
}

// Len returns the number of labels.
func (l Labels) Len() int { return len(l.names) }

// At returns the i-th label.
func (l Labels) At(i int) string { return l.names[i] }

// Index returns the position of name in the set.
func (l Labels) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Names returns a copy of the labels in order.
func (l Labels) Names() []string {
	return append([]string(nil), l.names...)
}
