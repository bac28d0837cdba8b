package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ampere-erp/ampere-erp/internal/platform/httpx"
)

const defaultTTL = 15 * time.Minute

// Handler issues signed URLs and serves the object endpoints they point at.
type Handler struct {
	logger *slog.Logger
	signer *Signer
	store  *DiskStore
}

func NewHandler(logger *slog.Logger, signer *Signer, store *DiskStore) *Handler {
	return &Handler{logger: logger, signer: signer, store: store}
}

// MountSignedRoutes wires the authenticated URL-issuing endpoints.
func (h *Handler) MountSignedRoutes(r chi.Router) {
	r.Post("/upload-url", h.UploadURL)
	r.Get("/download-url", h.DownloadURL)
}

// MountObjectRoutes wires the public object endpoints; the signature query
// parameters are the only access control here.
func (h *Handler) MountObjectRoutes(r chi.Router) {
	r.Put("/objects/{key}", h.PutObject)
	r.Get("/objects/{key}", h.GetObject)
}

type uploadURLPayload struct {
	Kind      string `json:"kind"`
	Extension string `json:"extension"`
}

// UploadURL mints an object key and a signed PUT URL for it. Kind prefixes
// the key (profile, signature, documents).
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var payload uploadURLPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	kind := strings.Trim(strings.ToLower(payload.Kind), "/")
	switch kind {
	case "profile", "signature", "documents":
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "kind must be profile, signature or documents")
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(payload.Extension), ".")
	key := fmt.Sprintf("%s/%s", kind, uuid.NewString())
	if ext != "" {
		key += "." + ext
	}
	httpx.JSON(w, http.StatusOK, h.signer.UploadURL(key, defaultTTL))
}

// DownloadURL signs a GET for an existing object key.
func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "key query parameter required")
		return
	}
	httpx.JSON(w, http.StatusOK, h.signer.DownloadURL(key, defaultTTL))
}

func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	key, ok := h.verified(w, r, "PUT")
	if !ok {
		return
	}
	if err := h.store.Put(key, r.Body); err != nil {
		h.logger.Error("object write failed", "key", key, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	key, ok := h.verified(w, r, "GET")
	if !ok {
		return
	}
	blob, err := h.store.Get(key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "object not found")
			return
		}
		h.logger.Error("object read failed", "key", key, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	defer blob.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, blob)
}

func (h *Handler) verified(w http.ResponseWriter, r *http.Request, method string) (string, bool) {
	key := chi.URLParam(r, "key")
	err := h.signer.Verify(method, key, r.URL.Query().Get("expires"), r.URL.Query().Get("sig"))
	switch {
	case errors.Is(err, ErrExpired):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "signed url expired")
		return "", false
	case err != nil:
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "invalid signature")
		return "", false
	}
	return key, true
}
