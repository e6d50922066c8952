package webhook

import "encoding/json"

// The body Meta POSTs for the whatsapp_business_account object. Each level
// declares only the fields the router reads and keeps them as raw JSON, so a
// malformed sibling entry, change or message never blocks the first message.

type Envelope struct {
	Entry []json.RawMessage `json:"entry"`
}

type Entry struct {
	Changes []json.RawMessage `json:"changes"`
}

type Change struct {
	Value json.RawMessage `json:"value"`
}

type Value struct {
	Metadata json.RawMessage   `json:"metadata"`
	Contacts json.RawMessage   `json:"contacts"`
	Messages []json.RawMessage `json:"messages"`
}

type Metadata struct {
	PhoneNumberID json.RawMessage `json:"phone_number_id"`
}

type Contact struct {
	WaID    json.RawMessage `json:"wa_id"`
	Profile json.RawMessage `json:"profile"`
}

type Profile struct {
	Name json.RawMessage `json:"name"`
}

type Message struct {
	From      json.RawMessage `json:"from"`
	ID        json.RawMessage `json:"id"`
	Timestamp json.RawMessage `json:"timestamp"`
	Type      json.RawMessage `json:"type"`
	Text      json.RawMessage `json:"text"`
}

type Text struct {
	Body json.RawMessage `json:"body"`
}

// decodeInto reports whether raw is present and decodes into dest.
func decodeInto(raw json.RawMessage, dest any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// stringOf returns raw as a string, or "" when it is absent or not a string.
func stringOf(raw json.RawMessage) string {
	var s string
	if !decodeInto(raw, &s) {
		return ""
	}
	return s
}
