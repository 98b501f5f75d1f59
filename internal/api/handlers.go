package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/presenter"
	"github.com/yegors/wmo-decoder/internal/query"
	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// Health describes the wiring reported by /api/health
type Health struct {
	Model            string `json:"model"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	SearchEnabled    bool   `json:"search_enabled"`
	CacheEnabled     bool   `json:"cache_enabled"`
}

// Handler contains the API handlers
type Handler struct {
	session   *session.Session
	presenter *presenter.Presenter
	catalog   *i18n.Catalog
	health    Health
	logger    *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(sess *session.Session, pres *presenter.Presenter, catalog *i18n.Catalog, health Health, logger *logger.Logger) *Handler {
	return &Handler{
		session:   sess,
		presenter: pres,
		catalog:   catalog,
		health:    health,
		logger:    logger.Named("api-handler"),
	}
}

// TranslateRequest is the body of POST /api/translate
type TranslateRequest struct {
	Query string `json:"query"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  wxcode.Kind `json:"kind,omitempty"`
}

// StateError is the JSON form of the current error
type StateError struct {
	Kind    wxcode.Kind `json:"kind"`
	Message string      `json:"message"`
}

// StateResponse is the body of GET /api/state
type StateResponse struct {
	Version uint64                `json:"version"`
	Loading bool                  `json:"loading"`
	Error   *StateError           `json:"error,omitempty"`
	Result  *wxcode.Record        `json:"result,omitempty"`
	View    presenter.View        `json:"view"`
	History []wxcode.HistoryEntry `json:"history"`
}

// locale picks the request locale from ?lang= or Accept-Language
func (h *Handler) locale(r *http.Request) string {
	return h.catalog.Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
}

// Index renders the full page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	page := h.presenter.Page(h.session.Snapshot(), locale)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := presenter.RenderPage(w, page); err != nil {
		h.logger.Error("Failed to render page", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// SubmitForm handles the plain form post and redirects back to the page once
// the lookup has settled
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, err := h.session.Submit(r.Context(), r.PostForm.Get("query"))
	switch {
	case err == nil:
	case errors.Is(err, session.ErrEmptyQuery), errors.Is(err, session.ErrBusy):
		h.logger.Debug("Form submission ignored", logger.Error(err))
	default:
		// Already in the session state; the page shows it
		h.logger.Debug("Form submission failed", logger.Error(err))
	}

	h.redirectHome(w, r)
}

// SelectForm handles a history click from the plain page
func (h *Handler) SelectForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Select(chi.URLParam(r, "id")); err != nil {
		h.logger.Debug("History selection ignored", logger.Error(err))
	}
	h.redirectHome(w, r)
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if lang := r.URL.Query().Get("lang"); lang != "" {
		target += "?lang=" + url.QueryEscape(lang)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GetState returns the current state, its view and the history
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()

	resp := StateResponse{
		Version: snap.Version,
		Loading: snap.State.Loading,
		Result:  snap.State.Result,
		View:    h.presenter.Present(snap.State, h.locale(r)),
		History: snap.History,
	}
	if snap.State.Err != nil {
		resp.Error = &StateError{Kind: snap.State.Err.Kind, Message: snap.State.Err.Message}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Translate runs a lookup. With ?async=true it returns 202 as soon as the
// lookup has started and the result arrives over the websocket.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Kind: wxcode.KindInput})
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		if err := h.session.Start(r.Context(), req.Query); err != nil {
			h.writeError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, h.session.Snapshot())
		return
	}

	rec, err := h.session.Submit(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// GetHistory returns the retained lookups, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"history": h.session.History(),
	})
}

// SelectHistory makes a history entry the current result
func (h *Handler) SelectHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.session.Select(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// GetExamples returns the quick-fill shortcuts
func (h *Handler) GetExamples(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"examples": query.Examples(),
	})
}

// Health reports liveness and how the translator is wired
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"details": h.health,
	})
}

// writeError maps session and translation errors to status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: wxcode.KindInput})
		return
	case errors.Is(err, session.ErrBusy):
		WriteJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, session.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	werr := wxcode.AsError(err, err.Error())
	status := http.StatusBadGateway
	switch werr.Kind {
	case wxcode.KindInput:
		status = http.StatusBadRequest
	case wxcode.KindConfiguration:
		status = http.StatusServiceUnavailable
	case wxcode.KindParse:
		status = http.StatusUnprocessableEntity
	}
	WriteJSON(w, status, ErrorResponse{Error: werr.Message, Kind: werr.Kind})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
