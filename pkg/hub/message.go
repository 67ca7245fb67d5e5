// Package hub fans analyzer output out to websocket clients.
package hub

// Kind selects the websocket frame a message is written as.
type Kind int

const (
	Text   Kind = iota // Overlay and log JSON
	Binary             // Annotated still images (PNG)
)

// Message is one payload queued for every client.
type Message struct {
	Kind Kind
	Data []byte
}
