package webhookmsg

// MessageKind enumerates the WhatsApp message kinds this system understands.
type MessageKind string

// Supported message kinds, per the Meta Graph webhook envelope.
const (
	KindText        MessageKind = "text"
	KindImage       MessageKind = "image"
	KindVideo       MessageKind = "video"
	KindAudio       MessageKind = "audio"
	KindDocument    MessageKind = "document"
	KindSticker     MessageKind = "sticker"
	KindLocation    MessageKind = "location"
	KindContacts    MessageKind = "contacts"
	KindAddress     MessageKind = "address"
	KindInteractive MessageKind = "interactive"
	KindTemplate    MessageKind = "template"
	KindReaction    MessageKind = "reaction"
)

var validKinds = map[MessageKind]bool{
	KindText: true, KindImage: true, KindVideo: true, KindAudio: true,
	KindDocument: true, KindSticker: true, KindLocation: true, KindContacts: true,
	KindAddress: true, KindInteractive: true, KindTemplate: true, KindReaction: true,
}

// NormalizedMessage is one inbound message flattened out of the vendor envelope.
// It intentionally carries no raw payload: every field is a scalar extracted
// per kind, never a pass-through blob that might leak PII beyond what's needed.
type NormalizedMessage struct {
	MessageID     string      `json:"message_id" validate:"required"`
	FromNumber    string      `json:"from_number,omitempty"`
	Timestamp     int64       `json:"timestamp"`
	Kind          MessageKind `json:"message_type" validate:"required"`
	Text          string      `json:"text,omitempty"`
	ChatID        string      `json:"chat_id,omitempty"`

	MediaID       string `json:"media_id,omitempty"`
	MediaURL      string `json:"media_url,omitempty"`
	MediaFilename string `json:"media_filename,omitempty"`
	MediaMimeType string `json:"media_mime_type,omitempty"`

	LocationLatitude  float64 `json:"location_latitude,omitempty"`
	LocationLongitude float64 `json:"location_longitude,omitempty"`
	LocationName      string  `json:"location_name,omitempty"`
	LocationAddress   string  `json:"location_address,omitempty"`

	AddressStreet      string `json:"address_street,omitempty"`
	AddressCity        string `json:"address_city,omitempty"`
	AddressState       string `json:"address_state,omitempty"`
	AddressZipCode     string `json:"address_zip_code,omitempty"`
	AddressCountryCode string `json:"address_country_code,omitempty"`

	ContactsJSON string `json:"contacts_json,omitempty"`

	InteractiveType     string `json:"interactive_type,omitempty"`
	InteractiveButtonID string `json:"interactive_button_id,omitempty"`
	InteractiveListID   string `json:"interactive_list_id,omitempty"`
	InteractiveCTAURL   string `json:"interactive_cta_url,omitempty"`

	ReactionMessageID string `json:"reaction_message_id,omitempty"`
	ReactionEmoji     string `json:"reaction_emoji,omitempty"`

	// PayloadRef is an opaque out-of-band reference (the vendor CDN link or
	// media id) for media kinds, whose content never arrives inline; never
	// raw PII.
	PayloadRef string `json:"payload_ref,omitempty"`
}

// Valid reports whether m satisfies the data-model invariant from spec §3:
// non-empty message-id, a recognized kind-tag, and per-kind required fields.
func (m NormalizedMessage) Valid() bool {
	if m.MessageID == "" {
		return false
	}
	if !validKinds[m.Kind] {
		return false
	}
	switch m.Kind {
	case KindText:
		return m.Text != ""
	case KindImage, KindVideo, KindAudio, KindDocument, KindSticker:
		return m.MediaID != "" || m.MediaURL != ""
	case KindLocation:
		return m.LocationLatitude != 0 || m.LocationLongitude != 0
	case KindContacts:
		return m.ContactsJSON != ""
	case KindAddress:
		return m.AddressStreet != "" || m.AddressCity != ""
	case KindInteractive:
		return m.InteractiveType != ""
	case KindTemplate:
		return true
	case KindReaction:
		return m.ReactionMessageID != ""
	}
	return false
}

// WebhookProcessingSummary is returned to the HTTP caller for one POST; it
// never carries PII, only counts and opaque error/notes strings.
type WebhookProcessingSummary struct {
	TotalReceived       int      `json:"total_received"`
	TotalDeduped        int      `json:"total_deduped"`
	TotalProcessed      int      `json:"total_processed"`
	SignatureValidated  bool     `json:"signature_validated"`
	SignatureSkipped    bool     `json:"signature_skipped"`
	Errors              []string `json:"errors"`
	Notes               []string `json:"notes"`
}
