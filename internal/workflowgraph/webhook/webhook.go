// Package webhook provides a minimal HTTP trigger endpoint for starting
// workflow executions from an external event. It is out of the core
// engine per spec.md §1, but specified here so a caller has a concrete
// integration point without needing a web framework: the teacher's own
// webhook surface is routed through go-chi/chi, which isn't in this
// module's dependency set, so net/http.ServeMux is used directly.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
)

// TriggerFunc starts a workflow execution from a raw JSON trigger payload
// and returns the execution id it created.
type TriggerFunc func(triggers json.RawMessage) (executionID string, err error)

// Handler serves a single webhook endpoint plus a health check. When
// secret is non-empty, incoming requests must carry a valid
// X-Newton-Signature: sha256=<hex hmac> header computed over the raw body.
type Handler struct {
	trigger TriggerFunc
	secret  string
}

// NewHandler constructs a Handler. secret may be empty to disable
// signature verification (development/test use only).
func NewHandler(trigger TriggerFunc, secret string) *Handler {
	return &Handler{trigger: trigger, secret: secret}
}

// Mux returns a ServeMux with the webhook and health routes registered,
// suitable for passing directly to http.ListenAndServe or mounting under
// a larger router.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", h.handleWebhook)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if h.secret != "" {
		signature := r.Header.Get("X-Newton-Signature")
		if signature == "" || !hmac.Equal([]byte(signature), []byte(expectedSignature(body, h.secret))) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if !json.Valid(body) {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	executionID, err := h.trigger(json.RawMessage(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"execution_id": executionID})
}

func expectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
