package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gmLucario/pet-info-sub000/config"
)

const moduleName = "webhook"

var ErrInvalidEnvelope = errors.New("body is not a whatsapp webhook envelope")

type EventKind string

const (
	EventMessage      EventKind = "message"
	EventStatusUpdate EventKind = "status_update"
)

// InboundEvent is the channel-agnostic form of one webhook item. Exactly one
// of Message or Status is set, matching Kind.
type InboundEvent struct {
	Kind    EventKind
	Message *Message
	Status  *Status
}

// Decode flattens the provider envelope into the individual events it
// carries. Only changes on the "messages" field hold traffic we care about.
// A malformed item is dropped and logged; the rest of the batch survives.
func Decode(raw []byte) ([]InboundEvent, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if envelope.Object == "" || len(envelope.Entry) == 0 {
		return nil, ErrInvalidEnvelope
	}

	logger := config.GetLogger()
	events := []InboundEvent{}

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for i := range change.Value.Messages {
				msg := change.Value.Messages[i]
				if err := validateMessage(&msg); err != nil {
					config.LogError(logger, moduleName, "Decode", "drop malformed message",
						map[string]any{"messageId": msg.ID, "type": msg.Type}, err)
					continue
				}
				events = append(events, InboundEvent{Kind: EventMessage, Message: &msg})
			}
			for i := range change.Value.Statuses {
				status := change.Value.Statuses[i]
				if status.ID == "" || status.Status == "" {
					config.LogError(logger, moduleName, "Decode", "drop malformed status",
						map[string]any{"messageId": status.ID}, errors.New("missing id or status"))
					continue
				}
				events = append(events, InboundEvent{Kind: EventStatusUpdate, Status: &status})
			}
		}
	}

	return events, nil
}

// validateMessage requires sender identity plus the payload that matches the
// declared type.
func validateMessage(msg *Message) error {
	if msg.From == "" || msg.ID == "" {
		return errors.New("missing sender or message id")
	}

	switch msg.Type {
	case MessageTypeText:
		if msg.Text == nil || msg.Text.Body == "" {
			return errors.New("text message without body")
		}
	case MessageTypeImage:
		if msg.Image == nil || msg.Image.ID == "" {
			return errors.New("image message without media id")
		}
	case MessageTypeVideo:
		if msg.Video == nil || msg.Video.ID == "" {
			return errors.New("video message without media id")
		}
	case MessageTypeDocument:
		if msg.Document == nil || msg.Document.ID == "" {
			return errors.New("document message without media id")
		}
	case MessageTypeAudio:
		if msg.Audio == nil || msg.Audio.ID == "" {
			return errors.New("audio message without media id")
		}
	case MessageTypeLocation:
		if msg.Location == nil {
			return errors.New("location message without coordinates")
		}
	case MessageTypeInteractive:
		if msg.Interactive.ReplyID() == "" {
			return errors.New("interactive message without a reply selection")
		}
	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}

	return nil
}
