package webhook

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// InboundEvent is the canonical form of the first message in a notification.
type InboundEvent struct {
	SenderID      string
	Text          string // trimmed and lower-cased, used for classification
	RawText       string // body exactly as sent, case preserved
	MessageID     string
	Type          string
	Timestamp     time.Time
	PhoneNumberID string
	ProfileName   string
	// Dropped counts the messages after the first that were ignored.
	Dropped int
}

// Normalize decodes a raw webhook body and extracts its first message.
// It returns false for malformed JSON and for notifications without a
// routable message, such as delivery status updates.
func Normalize(payload []byte) (InboundEvent, bool) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return InboundEvent{}, false
	}
	return NormalizeEnvelope(env)
}

// NormalizeEnvelope walks entry[0].changes[0].value.messages[0]. Any missing
// or mistyped level on that path, and a message without a sender, yields
// false. Optional fields that fail to decode are left empty.
func NormalizeEnvelope(env Envelope) (InboundEvent, bool) {
	var entry Entry
	if len(env.Entry) == 0 || !decodeInto(env.Entry[0], &entry) || len(entry.Changes) == 0 {
		return InboundEvent{}, false
	}
	var change Change
	if !decodeInto(entry.Changes[0], &change) {
		return InboundEvent{}, false
	}
	var value Value
	if !decodeInto(change.Value, &value) || len(value.Messages) == 0 {
		return InboundEvent{}, false
	}
	var msg Message
	if !decodeInto(value.Messages[0], &msg) {
		return InboundEvent{}, false
	}

	from := stringOf(msg.From)
	if strings.TrimSpace(from) == "" {
		return InboundEvent{}, false
	}

	var text Text
	var raw string
	if decodeInto(msg.Text, &text) {
		raw = stringOf(text.Body)
	}

	var meta Metadata
	decodeInto(value.Metadata, &meta)

	event := InboundEvent{
		SenderID:      from,
		Text:          strings.ToLower(strings.TrimSpace(raw)),
		RawText:       raw,
		MessageID:     stringOf(msg.ID),
		Type:          stringOf(msg.Type),
		Timestamp:     timestampOf(msg.Timestamp),
		PhoneNumberID: stringOf(meta.PhoneNumberID),
		Dropped:       len(value.Messages) - 1,
	}
	event.ProfileName = profileName(value.Contacts, from)
	return event, true
}

func profileName(raw json.RawMessage, waID string) string {
	var contacts []json.RawMessage
	decodeInto(raw, &contacts)
	for _, rawContact := range contacts {
		var c Contact
		if !decodeInto(rawContact, &c) || stringOf(c.WaID) != waID {
			continue
		}
		var p Profile
		if decodeInto(c.Profile, &p) {
			return stringOf(p.Name)
		}
		return ""
	}
	return ""
}

// timestampOf accepts the provider's string encoded epoch seconds as well as
// a bare JSON number.
func timestampOf(raw json.RawMessage) time.Time {
	var n json.Number
	if !decodeInto(raw, &n) {
		return time.Time{}
	}
	return parseUnix(n.String())
}

// parseUnix reads epoch seconds; unparseable input yields the zero time.
func parseUnix(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
