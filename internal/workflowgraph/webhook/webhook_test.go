package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhook_TriggersAndReturnsExecutionID(t *testing.T) {
	h := NewHandler(func(triggers json.RawMessage) (string, error) {
		return "exec-123", nil
	}, "")

	body := []byte(`{"event":"push"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "exec-123", resp["execution_id"])
}

func TestHandleWebhook_RejectsInvalidSignature(t *testing.T) {
	h := NewHandler(func(triggers json.RawMessage) (string, error) {
		return "exec-123", nil
	}, "shh")

	body := []byte(`{"event":"push"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Newton-Signature", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleWebhook_AcceptsValidSignature(t *testing.T) {
	h := NewHandler(func(triggers json.RawMessage) (string, error) {
		return "exec-456", nil
	}, "shh")

	body := []byte(`{"event":"push"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Newton-Signature", sign(body, "shh"))
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleWebhook_RejectsNonPost(t *testing.T) {
	h := NewHandler(func(triggers json.RawMessage) (string, error) { return "", nil }, "")
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	h := NewHandler(nil, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
