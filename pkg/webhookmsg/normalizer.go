package webhookmsg

import (
	"encoding/json"
)

// Envelope mirrors the top-level shape of a Meta Graph API WhatsApp webhook
// delivery: a list of entries, each with a list of changes, each change
// carrying a value with a list of messages.
type Envelope struct {
	Object string          `json:"object"`
	Entry  []EnvelopeEntry `json:"entry"`
}

type EnvelopeEntry struct {
	ID      string           `json:"id"`
	Changes []EnvelopeChange `json:"changes"`
}

type EnvelopeChange struct {
	Field string        `json:"field"`
	Value EnvelopeValue `json:"value"`
}

type EnvelopeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []RawMessage     `json:"messages"`
	Contacts         []RawValueActor  `json:"contacts"`
}

type RawValueActor struct {
	WaID string `json:"wa_id"`
}

// RawMessage is the vendor's per-kind message shape. Only fields this system
// cares about are declared; everything else is dropped on parse.
type RawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text *struct {
		Body string `json:"body"`
	} `json:"text"`

	Image    *RawMedia `json:"image"`
	Video    *RawMedia `json:"video"`
	Audio    *RawMedia `json:"audio"`
	Document *RawMedia `json:"document"`
	Sticker  *RawMedia `json:"sticker"`

	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
	} `json:"location"`

	Contacts json.RawMessage `json:"contacts"`

	Address *struct {
		Street      string `json:"street"`
		City        string `json:"city"`
		State       string `json:"state"`
		ZipCode     string `json:"zip_code"`
		CountryCode string `json:"country_code"`
	} `json:"address"`

	Interactive *struct {
		Type             string `json:"type"`
		ButtonReply      *struct{ ID string `json:"id"` } `json:"button_reply"`
		ListReply        *struct{ ID string `json:"id"` } `json:"list_reply"`
		CTAURL           *struct {
			Parameters struct {
				URL string `json:"url"`
			} `json:"parameters"`
		} `json:"nfm_reply"`
	} `json:"interactive"`

	Reaction *struct {
		MessageID string `json:"message_id"`
		Emoji     string `json:"emoji"`
	} `json:"reaction"`

	Template json.RawMessage `json:"template"`
}

type RawMedia struct {
	ID       string `json:"id"`
	Link     string `json:"link"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

// NormalizeResult is the outcome of normalizing one envelope.
type NormalizeResult struct {
	Messages []NormalizedMessage
	Dropped  int // unknown kinds or missing message-id, counted but not logged with content
}

// Normalize walks the vendor envelope (entry -> changes -> value -> messages)
// in order and emits one NormalizedMessage per recognized, well-formed
// message. Unknown kinds or messages missing an id are dropped silently and
// only counted, per spec §4.2.
func Normalize(env Envelope) NormalizeResult {
	var result NormalizeResult

	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			for _, raw := range change.Value.Messages {
				msg, ok := normalizeOne(raw)
				if !ok {
					result.Dropped++
					continue
				}
				result.Messages = append(result.Messages, msg)
			}
		}
	}
	return result
}

func normalizeOne(raw RawMessage) (NormalizedMessage, bool) {
	if raw.ID == "" {
		return NormalizedMessage{}, false
	}

	msg := NormalizedMessage{
		MessageID:  raw.ID,
		FromNumber: normalizePhone(raw.From),
		Kind:       MessageKind(raw.Type),
		Timestamp:  parseUnixSeconds(raw.Timestamp),
	}

	switch msg.Kind {
	case KindText:
		if raw.Text == nil {
			return NormalizedMessage{}, false
		}
		msg.Text = raw.Text.Body
	case KindImage:
		fillMedia(&msg, raw.Image)
	case KindVideo:
		fillMedia(&msg, raw.Video)
	case KindAudio:
		fillMedia(&msg, raw.Audio)
	case KindDocument:
		fillMedia(&msg, raw.Document)
	case KindSticker:
		fillMedia(&msg, raw.Sticker)
	case KindLocation:
		if raw.Location == nil {
			return NormalizedMessage{}, false
		}
		msg.LocationLatitude = raw.Location.Latitude
		msg.LocationLongitude = raw.Location.Longitude
		msg.LocationName = raw.Location.Name
		msg.LocationAddress = raw.Location.Address
	case KindContacts:
		if len(raw.Contacts) == 0 {
			return NormalizedMessage{}, false
		}
		msg.ContactsJSON = string(raw.Contacts)
	case KindAddress:
		if raw.Address == nil {
			return NormalizedMessage{}, false
		}
		msg.AddressStreet = raw.Address.Street
		msg.AddressCity = raw.Address.City
		msg.AddressState = raw.Address.State
		msg.AddressZipCode = raw.Address.ZipCode
		msg.AddressCountryCode = raw.Address.CountryCode
	case KindInteractive:
		if raw.Interactive == nil {
			return NormalizedMessage{}, false
		}
		msg.InteractiveType = raw.Interactive.Type
		if raw.Interactive.ButtonReply != nil {
			msg.InteractiveButtonID = raw.Interactive.ButtonReply.ID
		}
		if raw.Interactive.ListReply != nil {
			msg.InteractiveListID = raw.Interactive.ListReply.ID
		}
		if raw.Interactive.CTAURL != nil {
			msg.InteractiveCTAURL = raw.Interactive.CTAURL.Parameters.URL
		}
	case KindTemplate:
		// Template messages carry no required sub-fields for inbound normalization.
	case KindReaction:
		if raw.Reaction == nil {
			return NormalizedMessage{}, false
		}
		msg.ReactionMessageID = raw.Reaction.MessageID
		msg.ReactionEmoji = raw.Reaction.Emoji
	default:
		return NormalizedMessage{}, false
	}

	if !msg.Valid() {
		return NormalizedMessage{}, false
	}
	return msg, true
}

func fillMedia(msg *NormalizedMessage, media *RawMedia) {
	if media == nil {
		return
	}
	msg.MediaID = media.ID
	msg.MediaURL = media.Link
	msg.MediaFilename = media.Filename
	msg.MediaMimeType = media.MimeType

	// Media content always lives on the vendor's CDN, never inline in the
	// webhook payload, so the link (or failing that, the media id) is the
	// out-of-band reference.
	switch {
	case media.Link != "":
		msg.PayloadRef = media.Link
	case media.ID != "":
		msg.PayloadRef = media.ID
	}
}
