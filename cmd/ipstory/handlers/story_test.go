package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettrail/ipstory/cmd/ipstory/models"
	"github.com/nettrail/ipstory/cmd/ipstory/repository"
	"github.com/nettrail/ipstory/cmd/ipstory/service"
	"github.com/nettrail/ipstory/common/logger"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	log := logger.New("error", "json")
	stories := service.NewStoryService(repository.NewMemoryStoryStore(), log)
	h := NewStoryHandler(stories, log)

	e := echo.New()
	e.PUT("/api/ip/:ip", h.Register)
	e.POST("/api/ip/:ip/entry", h.AppendEntry)
	e.POST("/api/ip/:ip/entry/update", h.UpdateEntry)
	e.GET("/api/ip/:ip/entry/search", h.SearchEntries)
	e.DELETE("/api/ip/:ip/entry/:uuid", h.DeleteEntry)
	return e
}

type envelope struct {
	Error *string         `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRegisterEndpoint(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, env.Error)
	assert.JSONEq(t, `"10.0.0.1"`, string(env.Data))

	// Idempotent
	code, _ = do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")
	assert.Equal(t, http.StatusOK, code)
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Exists(ctx context.Context, ip netip.Addr) (bool, error) {
	return false, &repository.StorageError{Op: "exists", IP: ip.String(), Err: errors.New("connection refused")}
}

func (brokenStore) Load(ctx context.Context, ip netip.Addr) (models.IpStory, error) {
	return models.IpStory{}, &repository.StorageError{Op: "load", IP: ip.String(), Err: errors.New("connection refused")}
}

func (brokenStore) Save(ctx context.Context, story models.IpStory) error {
	return &repository.StorageError{Op: "save", IP: story.IP.String(), Err: errors.New("connection refused")}
}

func TestRegisterStorageFailureLogsRequestedAddress(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	stories := service.NewStoryService(brokenStore{}, log)
	h := NewStoryHandler(stories, log)

	e := echo.New()
	e.PUT("/api/ip/:ip", h.Register)

	code, env := do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	require.NotNil(t, env.Error)

	// The failure is logged against the requested address
	assert.Contains(t, buf.String(), `"ip":"10.0.0.1"`)
}

func TestRegisterRejectsBadAddress(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPut, "/api/ip/not-an-ip", "")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
}

func TestAppendEndpoint(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")

	code, env := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", `{"data":{"text":"hello"}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, env.Error)

	var stored models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.NotNil(t, stored.ID)
	assert.NotNil(t, stored.CreatedAt)
}

func TestAppendUnknownAddressIs404(t *testing.T) {
	e := newTestServer(t)

	code, env := do(t, e, http.MethodPost, "/api/ip/10.9.9.9/entry", `{"data":{"text":"x"}}`)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
}

func TestAppendTimestampConflictIs409(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")

	body := `{"ctime":"2024-05-01T12:00:00Z","data":{"text":"first"}}`
	code, _ := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", body)
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", body)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
}

func TestSearchEndpoint(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")
	do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", `{"ctime":"2024-05-01T12:00:00Z","data":{"text":"note"}}`)
	do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", `{"ctime":"2024-05-01T13:00:00Z","data":{"asn":64512}}`)

	code, env := do(t, e, http.MethodGet, "/api/ip/10.0.0.1/entry/search", "")
	assert.Equal(t, http.StatusOK, code)

	var entries []models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, models.KindText, entries[0].Kind())
	assert.Equal(t, models.KindAsn, entries[1].Kind())

	code, env = do(t, e, http.MethodGet, "/api/ip/10.0.0.1/entry/search?kind=asn", "")
	assert.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.KindAsn, entries[0].Kind())

	code, env = do(t, e, http.MethodGet, "/api/ip/10.0.0.1/entry/search?order=desc&limit=1", "")
	assert.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.KindAsn, entries[0].Kind())

	// limit=0 takes zero entries; it is not the same as leaving limit off
	code, env = do(t, e, http.MethodGet, "/api/ip/10.0.0.1/entry/search?limit=0", "")
	assert.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Empty(t, entries)
}

func TestSearchRejectsBadParams(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")

	for _, query := range []string{"kind=bogus", "limit=-1", "limit=abc", "offset=-2", "order=sideways"} {
		code, env := do(t, e, http.MethodGet, "/api/ip/10.0.0.1/entry/search?"+query, "")
		assert.Equal(t, http.StatusBadRequest, code, query)
		require.NotNil(t, env.Error, query)
	}
}

func TestUpdateEndpoint(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")

	_, env := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", `{"data":{"text":"draft"}}`)
	var stored models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &stored))

	body := fmt.Sprintf(`{"uuid":%q,"data":{"text":"final"}}`, stored.ID.String())
	code, env := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry/update", body)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `true`, string(env.Data))

	// Unknown identity is a benign no-match
	body = `{"uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","data":{"text":"never"}}`
	code, env = do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry/update", body)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `false`, string(env.Data))
}

func TestDeleteEndpoint(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPut, "/api/ip/10.0.0.1", "")

	_, env := do(t, e, http.MethodPost, "/api/ip/10.0.0.1/entry", `{"data":{"text":"ephemeral"}}`)
	var stored models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &stored))

	code, env := do(t, e, http.MethodDelete, "/api/ip/10.0.0.1/entry/"+stored.ID.String(), "")
	assert.Equal(t, http.StatusOK, code)

	var removed models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, *stored.ID, *removed.ID)

	// Deleting the same identity again reports no match
	code, env = do(t, e, http.MethodDelete, "/api/ip/10.0.0.1/entry/"+stored.ID.String(), "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `null`, string(env.Data))

	code, env = do(t, e, http.MethodDelete, "/api/ip/10.0.0.1/entry/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
}
