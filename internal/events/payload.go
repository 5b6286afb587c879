package events

import (
	"bytes"
	"encoding/json"
	"time"
)

// Payload is the JSON body POSTed to webhook receivers.
type Payload struct {
	EventType         string `json:"eventType"`
	Title             string `json:"title"`
	Message           string `json:"message"`
	UserEmail         string `json:"userEmail"`
	RelatedEntityType string `json:"relatedEntityType"`
	RelatedEntityID   int64  `json:"relatedEntityId"`
	Timestamp         string `json:"timestamp"`
}

func NewPayload(d Delivery) Payload {
	entityType := d.Event.RelatedEntityType
	if entityType == "" {
		entityType = "null"
	}
	return Payload{
		EventType:         d.Event.Type,
		Title:             d.Event.Title,
		Message:           d.Event.Message,
		UserEmail:         d.ActorEmail,
		RelatedEntityType: entityType,
		RelatedEntityID:   d.Event.RelatedEntityID,
		Timestamp:         d.Timestamp.Format(time.RFC3339Nano),
	}
}

// EncodePayload renders the wire body. HTML characters are left unescaped
// so receivers see titles and messages verbatim.
func EncodePayload(d Delivery) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewPayload(d)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
