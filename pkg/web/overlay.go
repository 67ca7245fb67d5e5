package web

import (
	"time"

	"github.com/teslashibe/go-moodcam/pkg/overlay"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
)

// OverlayFace is one face positioned on the display canvas.
type OverlayFace struct {
	Index      int          `json:"index"`
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Text       string       `json:"text"`
	Rect       overlay.Rect `json:"rect"`
}

// OverlayMessage is what /ws/overlay clients draw for one frame.
type OverlayMessage struct {
	Type     string        `json:"type"` // Always "overlay"
	FrameID  string        `json:"frame_id,omitempty"`
	State    string        `json:"state"`
	Status   string        `json:"status"`
	Mirrored bool          `json:"mirrored"`
	Canvas   overlay.Size  `json:"canvas"`
	Faces    []OverlayFace `json:"faces"`
	At       time.Time     `json:"at"`
}

// BuildOverlay maps every face of s onto canvas. When the snapshot has no
// usable analysis size the faces are left out and only the status is sent.
func BuildOverlay(s pipeline.Snapshot, canvas overlay.Size) OverlayMessage {
	msg := OverlayMessage{
		Type:     "overlay",
		FrameID:  s.FrameID,
		State:    string(s.State),
		Status:   s.Status,
		Mirrored: s.Mirrored,
		Canvas:   canvas,
		Faces:    make([]OverlayFace, 0, len(s.Faces)),
		At:       s.At,
	}
	for _, f := range s.Faces {
		r, ok := overlay.MapToCanvas(f.SensorBox, s.AnalysisSize, canvas, s.Mirrored)
		if !ok {
			msg.Faces = msg.Faces[:0]
			break
		}
		msg.Faces = append(msg.Faces, OverlayFace{
			Index:      f.Index,
			Label:      f.Label,
			Confidence: f.Confidence,
			Text:       f.Text,
			Rect:       r,
		})
	}
	return msg
}
