package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
	"github.com/mcdev12/scorepad/go/internal/session"
)

// Handler exposes the session service as a JSON API.
type Handler struct {
	app *session.App
}

// NewHandler creates a new HTTP API handler
func NewHandler(app *session.App) *Handler {
	return &Handler{app: app}
}

// RegisterRoutes registers all API routes with an HTTP mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/by-code/{code}", h.handleGetSessionByCode)
	mux.HandleFunc("POST /api/sessions/{id}/players", h.handleAddPlayer)
	mux.HandleFunc("POST /api/sessions/{id}/scores", h.handleScoreDelta)
	mux.HandleFunc("POST /api/sessions/{id}/order", h.handleSetOrder)
	mux.HandleFunc("POST /api/sessions/{id}/dealer", h.handleSetDealer)
	mux.HandleFunc("POST /api/sessions/{id}/finalize", h.handleFinalize)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.app.CreateSession(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGetSessionByCode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.app.GetSessionByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}

	var req session.AddPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stat, err := h.app.AddPlayer(r.Context(), sessionID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stat)
}

func (h *Handler) handleScoreDelta(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}

	var req session.ScoreDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := h.app.ApplyScoreDelta(r.Context(), sessionID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: stats})
}

func (h *Handler) handleSetOrder(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}

	var req session.SetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := h.app.SetOrder(r.Context(), sessionID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: stats})
}

func (h *Handler) handleSetDealer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}

	var req session.SetDealerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.app.SetDealer(r.Context(), sessionID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}

	res, err := h.app.Finalize(r.Context(), sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pathSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

type statsResponse struct {
	Stats []models.PlayerStat `json:"stats"`
}
