// Package outbound defines the enqueue contract the orchestrator builds and
// hands off to an external delivery queue. Building the wire payload per
// message_type is a separate worker's concern, not this package's.
package outbound

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MessageType is the WhatsApp message kind the eventual wire worker builds.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeMedia       MessageType = "media"
	MessageTypeLocation    MessageType = "location"
	MessageTypeInteractive MessageType = "interactive"
	MessageTypeTemplate    MessageType = "template"
)

// Job is the enqueue contract for an outbound WhatsApp message: everything a
// downstream worker needs to build the vendor wire payload, nothing more.
type Job struct {
	To              string      `json:"to"` // E.164 with leading "+"
	MessageType     MessageType `json:"message_type"`
	Text            string      `json:"text,omitempty"`
	MediaID         string      `json:"media_id,omitempty"`
	MediaURL        string      `json:"media_url,omitempty"`
	MediaFilename   string      `json:"media_filename,omitempty"`
	MediaMimeType   string      `json:"media_mime_type,omitempty"`
	Location        *Location   `json:"location,omitempty"`
	Address         string      `json:"address,omitempty"`
	Buttons         []string    `json:"buttons,omitempty"`
	InteractiveType string      `json:"interactive_type,omitempty"`
	Flow            string      `json:"flow,omitempty"`
	CTA             string      `json:"cta,omitempty"`
	Template        string      `json:"template,omitempty"`
	Category        string      `json:"category,omitempty"`
	IdempotencyKey  string      `json:"idempotency_key"`
	CorrelationID   string      `json:"correlation_id"`
	InboundEventID  string      `json:"inbound_event_id"`
}

// Location is the outbound job's optional location payload.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Hash returns SHA256(canonical-json(job)) hex-encoded, used as the
// "outbound:"+hash dedupe key guarding against re-enqueuing the same job.
func Hash(job Job) (string, error) {
	canonical, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("outbound: encode job: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
