package whatsapp

import (
	"fmt"
	"strings"

	"github.com/wolfman30/carrental-bot/internal/conversation"
)

const defaultCustomerName = "Customer"

// Extraction outcomes used as webhook status tags.
const (
	ExtractOK          = "ok"
	ExtractNoMessage   = "no_message"
	ExtractStatusEvent = "status_event"
)

// ExtractMessage pulls the first customer message out of a webhook payload.
// Only entry[0].changes[0].messages[0] is considered. The outcome is one of
// the Extract* constants.
func ExtractMessage(payload WebhookPayload) (conversation.InboundMessage, string) {
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return conversation.InboundMessage{}, ExtractNoMessage
	}
	value := payload.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		if len(value.Statuses) > 0 {
			return conversation.InboundMessage{}, ExtractStatusEvent
		}
		return conversation.InboundMessage{}, ExtractNoMessage
	}
	raw := value.Messages[0]
	if strings.TrimSpace(raw.From) == "" {
		return conversation.InboundMessage{}, ExtractNoMessage
	}

	msg := conversation.InboundMessage{
		ID:   raw.ID,
		From: raw.From,
		Name: contactName(value.Contacts, raw.From),
	}
	switch raw.Type {
	case "text":
		msg.Kind = conversation.KindText
		if raw.Text != nil {
			msg.Text = raw.Text.Body
		}
	case "interactive":
		if id := interactiveID(raw.Interactive); id != "" {
			msg.Kind = conversation.KindInteractive
			msg.Text = id
			break
		}
		// flows and other interactive replies carry no pick id
		msg.Kind = conversation.KindOther
		msg.Text = placeholder(interactiveType(raw.Interactive))
	default:
		msg.Kind = conversation.KindOther
		msg.Text = placeholder(raw.Type)
	}
	return msg, ExtractOK
}

func placeholder(kind string) string {
	return fmt.Sprintf("[%s message]", kind)
}

func interactiveType(in *InboundInteractive) string {
	if in == nil || strings.TrimSpace(in.Type) == "" {
		return "interactive"
	}
	return in.Type
}

func interactiveID(in *InboundInteractive) string {
	if in == nil {
		return ""
	}
	switch {
	case in.ButtonReply != nil:
		return in.ButtonReply.ID
	case in.ListReply != nil:
		return in.ListReply.ID
	}
	return ""
}

// contactName prefers the contact whose wa_id matches the sender, then the
// first contact.
func contactName(contacts []Contact, from string) string {
	for _, c := range contacts {
		if c.WaID == from && strings.TrimSpace(c.Profile.Name) != "" {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 && strings.TrimSpace(contacts[0].Profile.Name) != "" {
		return contacts[0].Profile.Name
	}
	return defaultCustomerName
}
