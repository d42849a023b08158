package models

import (
	"encoding/json"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(t time.Time, payload Payload) Entry {
	id := uuid.New()
	return Entry{ID: &id, CreatedAt: &t, Payload: payload}
}

func timestamps(entries []Entry) []time.Time {
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = *e.CreatedAt
	}
	return out
}

func TestHistoryInsertKeepsOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t1, t2, t3 := base, base.Add(time.Minute), base.Add(2*time.Minute)

	var h History
	// Out of order on purpose
	require.True(t, h.Insert(entryAt(t2, TextPayload("b"))))
	require.True(t, h.Insert(entryAt(t3, TextPayload("c"))))
	require.True(t, h.Insert(entryAt(t1, TextPayload("a"))))

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []time.Time{t1, t2, t3}, timestamps(h.Ascending()))
	assert.Equal(t, []time.Time{t3, t2, t1}, timestamps(h.Descending()))
}

func TestHistoryInsertRejectsDuplicateTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var h History
	require.True(t, h.Insert(entryAt(at, TextPayload("first"))))
	assert.False(t, h.Insert(entryAt(at, TextPayload("second"))))
	assert.Equal(t, 1, h.Len())

	first := h.Ascending()[0]
	require.NotNil(t, first.Payload.Text)
	assert.Equal(t, "first", *first.Payload.Text)
}

func TestHistoryInsertRequiresTimestamp(t *testing.T) {
	var h History
	id := uuid.New()
	assert.False(t, h.Insert(Entry{ID: &id, Payload: TextPayload("no ctime")}))
	assert.Equal(t, 0, h.Len())
}

func TestHistoryRemove(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var h History
	e := entryAt(at, AsnPayload(64512))
	require.True(t, h.Insert(e))

	removed, ok := h.Remove(at)
	require.True(t, ok)
	assert.Equal(t, *e.ID, *removed.ID)
	assert.Equal(t, 0, h.Len())

	_, ok = h.Remove(at)
	assert.False(t, ok)
}

func TestHistoryByIdentity(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var h History
	e1 := entryAt(base, TextPayload("keep"))
	e2 := entryAt(base.Add(time.Minute), TextPayload("drop"))
	require.True(t, h.Insert(e1))
	require.True(t, h.Insert(e2))

	found, ok := h.FindByID(*e1.ID)
	require.True(t, ok)
	assert.Equal(t, *e1.ID, *found.ID)

	_, ok = h.FindByID(uuid.New())
	assert.False(t, ok)

	removed, ok := h.RemoveByID(*e2.ID)
	require.True(t, ok)
	assert.Equal(t, *e2.ID, *removed.ID)
	assert.Equal(t, 1, h.Len())

	_, ok = h.RemoveByID(*e2.ID)
	assert.False(t, ok)
}

func TestHistoryJSONRoundTrip(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

	var h History
	entries := []Entry{
		entryAt(base, TextPayload("a")),
		entryAt(base.Add(time.Second), AsnPayload(3320)),
		entryAt(base.Add(time.Hour), VulnerablePayload("CVE-2024-3094")),
	}
	for _, e := range entries {
		require.True(t, h.Insert(e))
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded History
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, h.Len(), decoded.Len())
	got := decoded.Ascending()
	for i, want := range entries {
		assert.True(t, got[i].CreatedAt.Equal(*want.CreatedAt))
		assert.Equal(t, *want.ID, *got[i].ID)
		assert.Equal(t, want.Kind(), got[i].Kind())
	}
}

func TestHistoryUnmarshalRejectsDuplicateInstant(t *testing.T) {
	// Two renderings of the same instant must not smuggle in a
	// duplicate timestamp
	blob := `{
		"2024-05-01T12:00:00Z": {"data":{"text":"a"}},
		"2024-05-01T12:00:00+00:00": {"data":{"text":"b"}}
	}`

	var h History
	err := json.Unmarshal([]byte(blob), &h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate timestamp")
}

func TestIpStoryRoundTrip(t *testing.T) {
	ip := netip.MustParseAddr("192.0.2.7")
	story := NewIpStory(ip)
	require.True(t, story.History.Insert(entryAt(
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		TextPayload("first contact"),
	)))

	data, err := json.Marshal(story)
	require.NoError(t, err)

	var decoded IpStory
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ip, decoded.IP)
	assert.Equal(t, 1, decoded.History.Len())
}
