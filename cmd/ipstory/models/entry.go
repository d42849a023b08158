package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which payload case an Entry carries.
type Kind string

const (
	KindOwner      Kind = "owner"
	KindAsn        Kind = "asn"
	KindMispEvent  Kind = "misp-event"
	KindTicket     Kind = "ticket"
	KindVulnerable Kind = "vulnerable"
	KindText       Kind = "text"
	KindJSON       Kind = "json"
)

// ParseKind validates an externally supplied kind tag.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOwner, KindAsn, KindMispEvent, KindTicket, KindVulnerable, KindText, KindJSON:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown entry kind: %q", s)
}

// Owner describes the registered holder of an address.
type Owner struct {
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Country *string `json:"country,omitempty"`
	Abuse   *string `json:"abuse,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// MispEvent references an event on a MISP server.
type MispEvent struct {
	Server *string   `json:"server,omitempty"`
	UUID   uuid.UUID `json:"uuid"`
}

// TicketID is either a numeric tracker id or a UUID.
// Wire format: {"id": 42} or {"uuid": "..."}.
type TicketID struct {
	Num  *uint64
	UUID *uuid.UUID
}

func (t TicketID) MarshalJSON() ([]byte, error) {
	switch {
	case t.Num != nil && t.UUID == nil:
		return json.Marshal(map[string]uint64{"id": *t.Num})
	case t.UUID != nil && t.Num == nil:
		return json.Marshal(map[string]uuid.UUID{"uuid": *t.UUID})
	}
	return nil, fmt.Errorf("ticket id must be exactly one of id or uuid")
}

func (t *TicketID) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode ticket id: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("ticket id must be exactly one of id or uuid")
	}
	if v, ok := raw["id"]; ok {
		var n uint64
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("decode ticket id: %w", err)
		}
		*t = TicketID{Num: &n}
		return nil
	}
	if v, ok := raw["uuid"]; ok {
		var id uuid.UUID
		if err := json.Unmarshal(v, &id); err != nil {
			return fmt.Errorf("decode ticket uuid: %w", err)
		}
		*t = TicketID{UUID: &id}
		return nil
	}
	return fmt.Errorf("ticket id must be one of id or uuid")
}

// Ticket references an abuse ticket in an external tracker.
type Ticket struct {
	Server *string  `json:"server,omitempty"`
	ID     TicketID `json:"id"`
}

// Payload is a closed tagged union: exactly one case is active per entry.
// Wire format is externally tagged: {"<kind>": <value>}.
type Payload struct {
	Owner      *Owner
	Asn        *uint64
	MispEvent  *MispEvent
	Ticket     *Ticket
	Vulnerable *string
	Text       *string
	JSON       json.RawMessage
}

// Constructors for each payload case.

func OwnerPayload(o Owner) Payload          { return Payload{Owner: &o} }
func AsnPayload(asn uint64) Payload         { return Payload{Asn: &asn} }
func MispEventPayload(e MispEvent) Payload  { return Payload{MispEvent: &e} }
func TicketPayload(t Ticket) Payload        { return Payload{Ticket: &t} }
func VulnerablePayload(s string) Payload    { return Payload{Vulnerable: &s} }
func TextPayload(s string) Payload          { return Payload{Text: &s} }
func JSONPayload(raw json.RawMessage) Payload { return Payload{JSON: raw} }

// Kind returns the tag of the active case. Empty if the payload is invalid.
func (p Payload) Kind() Kind {
	switch {
	case p.Owner != nil:
		return KindOwner
	case p.Asn != nil:
		return KindAsn
	case p.MispEvent != nil:
		return KindMispEvent
	case p.Ticket != nil:
		return KindTicket
	case p.Vulnerable != nil:
		return KindVulnerable
	case p.Text != nil:
		return KindText
	case p.JSON != nil:
		return KindJSON
	}
	return ""
}

// Validate checks that exactly one case is set.
func (p Payload) Validate() error {
	count := 0
	for _, set := range []bool{
		p.Owner != nil,
		p.Asn != nil,
		p.MispEvent != nil,
		p.Ticket != nil,
		p.Vulnerable != nil,
		p.Text != nil,
		p.JSON != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("payload must have exactly one case, got %d", count)
	}
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var value interface{}
	switch p.Kind() {
	case KindOwner:
		value = p.Owner
	case KindAsn:
		value = p.Asn
	case KindMispEvent:
		value = p.MispEvent
	case KindTicket:
		value = p.Ticket
	case KindVulnerable:
		value = p.Vulnerable
	case KindText:
		value = p.Text
	case KindJSON:
		value = p.JSON
	}
	return json.Marshal(map[Kind]interface{}{p.Kind(): value})
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("payload must have exactly one case, got %d", len(raw))
	}
	for tag, value := range raw {
		kind, err := ParseKind(tag)
		if err != nil {
			return err
		}
		decoded := Payload{}
		switch kind {
		case KindOwner:
			decoded.Owner = &Owner{}
			err = json.Unmarshal(value, decoded.Owner)
		case KindAsn:
			decoded.Asn = new(uint64)
			err = json.Unmarshal(value, decoded.Asn)
		case KindMispEvent:
			decoded.MispEvent = &MispEvent{}
			err = json.Unmarshal(value, decoded.MispEvent)
		case KindTicket:
			decoded.Ticket = &Ticket{}
			err = json.Unmarshal(value, decoded.Ticket)
		case KindVulnerable:
			decoded.Vulnerable = new(string)
			err = json.Unmarshal(value, decoded.Vulnerable)
		case KindText:
			decoded.Text = new(string)
			err = json.Unmarshal(value, decoded.Text)
		case KindJSON:
			decoded.JSON = append(json.RawMessage(nil), value...)
		}
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", kind, err)
		}
		*p = decoded
	}
	return nil
}

// TagSet holds case-insensitive labels, stored lowercased, deduplicated
// and sorted.
type TagSet []string

// NewTagSet normalizes the given labels into a TagSet.
func NewTagSet(labels ...string) TagSet {
	seen := make(map[string]struct{}, len(labels))
	out := make(TagSet, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(label)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the set holds the label, ignoring case.
func (t TagSet) Contains(label string) bool {
	label = strings.ToLower(label)
	for _, tag := range t {
		if tag == label {
			return true
		}
	}
	return false
}

func (t *TagSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*t = NewTagSet(labels...)
	return nil
}

// Entry is one typed, timestamped record in an address history.
type Entry struct {
	// ID is the server-assigned identity, immutable once set.
	ID *uuid.UUID `json:"uuid,omitempty"`

	Description *string `json:"description,omitempty"`

	// CreatedAt doubles as the history sort and dedup key.
	CreatedAt *time.Time `json:"ctime,omitempty"`

	// ModifiedAt is set only when an entry is updated.
	ModifiedAt *time.Time `json:"mtime,omitempty"`

	Tags TagSet `json:"tags,omitempty"`

	Payload Payload `json:"data"`
}

// Kind returns the tag of the entry's payload case.
func (e Entry) Kind() Kind {
	return e.Payload.Kind()
}
