// Package prefixed_uuid generates UUIDs tagged with a short type prefix,
// e.g. "evt-0b9c...". The prefix itself may not contain a dash.
package prefixed_uuid

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PrefixedUUID is a UUID plus the prefix naming what it identifies.
type PrefixedUUID struct {
	Prefix string
	UUID   uuid.UUID
}

// New returns a random PrefixedUUID with the given prefix.
func New(prefix string) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: uuid.New()}
}

// Parse reads the "prefix-uuid" form produced by String.
func Parse(s string) (PrefixedUUID, error) {
	prefix, rest, ok := strings.Cut(s, "-")
	if !ok || prefix == "" {
		return PrefixedUUID{}, fmt.Errorf("invalid prefixed UUID format: %q", s)
	}

	id, err := uuid.Parse(rest)
	if err != nil {
		return PrefixedUUID{}, fmt.Errorf("invalid UUID in %q: %w", s, err)
	}

	return PrefixedUUID{Prefix: prefix, UUID: id}, nil
}

// HasPrefix reports whether p was minted for the given prefix.
func (p PrefixedUUID) HasPrefix(prefix string) bool {
	return p.Prefix == prefix
}

func (p PrefixedUUID) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Prefix + "-" + p.UUID.String()
}

// IsZero reports whether p is the zero value.
func (p PrefixedUUID) IsZero() bool {
	return p.Prefix == "" && p.UUID == uuid.Nil
}

func (p PrefixedUUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PrefixedUUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("prefixed UUID must be a JSON string: %w", err)
	}
	if s == "" {
		*p = PrefixedUUID{}
		return nil
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
