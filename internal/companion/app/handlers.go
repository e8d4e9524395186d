package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/companion-labs/companion/common/redact"
	"github.com/companion-labs/companion/common/version"
	"github.com/companion-labs/companion/internal/companion/chat"
	"github.com/companion-labs/companion/internal/companion/llm"
	"github.com/companion-labs/companion/internal/companion/memory"
	"github.com/companion-labs/companion/internal/companion/observability"
	"github.com/companion-labs/companion/internal/companion/store"
)

// maxDetailBytes bounds the upstream error body surfaced to clients.
const maxDetailBytes = 512

// placeholderReply answers POST /message, the no-LLM echo endpoint kept for
// client connectivity checks.
const placeholderReply = "Hello! This is a placeholder response."

// --- chat ---

type chatRequest struct {
	Role          string `json:"role"`
	Text          string `json:"text"`
	PersonalityID *int64 `json:"personalityId,omitempty"`
}

type chatResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.service.Submit(r.Context(), chat.SubmitRequest{
		ClientKey:     clientKey(r),
		Role:          req.Role,
		Text:          req.Text,
		PersonalityID: req.PersonalityID,
	})
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Status: "ok", Reply: result.Reply})
}

// writeChatError maps the service error taxonomy onto HTTP status codes.
// Client-input classes become 4xx; gateway classes become 502/504; anything
// unexpected is logged in full and surfaced as an opaque 500.
func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.WithTrace(r.Context())

	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "missing role or text in request body")
	case errors.Is(err, chat.ErrInvalidPersonality):
		writeError(w, http.StatusBadRequest, "unknown personality id")
	case errors.Is(err, chat.ErrRateLimited):
		retryAfter := s.service.RetryAfter(clientKey(r))
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
	case errors.Is(err, llm.ErrTimeout):
		logger.Warn("chat: upstream call timed out")
		writeError(w, http.StatusGatewayTimeout, "upstream completion timed out")
	default:
		var upErr *llm.UpstreamError
		var trErr *llm.TransportError
		switch {
		case errors.As(err, &upErr):
			detail := redact.Truncate(redact.String(upErr.Detail, s.apiKey), maxDetailBytes)
			logger.Warn("chat: upstream rejected request", "status", upErr.StatusCode, "detail", detail)
			writeError(w, http.StatusBadGateway,
				fmt.Sprintf("upstream error (status %d): %s", upErr.StatusCode, detail))
		case errors.As(err, &trErr):
			logger.Warn("chat: transport failure reaching upstream",
				"detail", redact.String(trErr.Detail, s.apiKey))
			writeError(w, http.StatusBadGateway, "could not reach upstream provider")
		default:
			logger.Error("chat: unexpected failure", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

// --- message (placeholder endpoint) ---

type messageRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type messageResponse struct {
	Status string      `json:"status"`
	Entry  memory.Turn `json:"entry"`
	Reply  string      `json:"reply"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Role == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing role or text in request body")
		return
	}

	entry := s.memory.Append(memory.Role(req.Role), req.Text)
	s.memory.Append(memory.RoleAssistant, placeholderReply)

	writeJSON(w, http.StatusOK, messageResponse{Status: "ok", Entry: entry, Reply: placeholderReply})
}

// --- memory inspection / reset ---

type memoryResponse struct {
	Memory []memory.Turn `json:"memory"`
}

func (s *Server) handleMemoryGet(w http.ResponseWriter, r *http.Request) {
	turns := s.memory.Snapshot()
	if turns == nil {
		turns = []memory.Turn{}
	}
	writeJSON(w, http.StatusOK, memoryResponse{Memory: turns})
}

func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	s.memory.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// --- personalities ---

type personalityPayload struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Emotion  string `json:"emotion,omitempty"`
	Attitude string `json:"attitude,omitempty"`
	Opinions string `json:"opinions,omitempty"`
}

func personalityToPayload(p *store.Personality) personalityPayload {
	return personalityPayload{
		ID:       p.ID,
		Name:     p.Name,
		Emotion:  p.Emotion.String,
		Attitude: p.Attitude.String,
		Opinions: p.Opinions.String,
	}
}

func (s *Server) handlePersonalityList(w http.ResponseWriter, r *http.Request) {
	personalities, err := s.store.ListPersonalities(r.Context())
	if err != nil {
		observability.WithTrace(r.Context()).Error("list personalities", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]personalityPayload, 0, len(personalities))
	for _, p := range personalities {
		out = append(out, personalityToPayload(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePersonalityCreate(w http.ResponseWriter, r *http.Request) {
	var req personalityPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := s.store.CreatePersonality(r.Context(), store.PersonalityFields{
		Name:     req.Name,
		Emotion:  req.Emotion,
		Attitude: req.Attitude,
		Opinions: req.Opinions,
	})
	if err != nil {
		observability.WithTrace(r.Context()).Error("create personality", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, personalityToPayload(created))
}

func (s *Server) handlePersonalityGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid personality id")
		return
	}

	p, err := s.store.GetPersonality(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "personality not found")
		return
	}
	if err != nil {
		observability.WithTrace(r.Context()).Error("get personality", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, personalityToPayload(p))
}

// --- users ---

type userPayload struct {
	ID                     int64           `json:"id"`
	Username               string          `json:"username,omitempty"`
	Email                  string          `json:"email,omitempty"`
	PreferredPersonalityID *int64          `json:"preferredPersonalityId,omitempty"`
	Metadata               json.RawMessage `json:"metadata,omitempty"`
}

type userUpdatePayload struct {
	Username               *string         `json:"username"`
	Email                  *string         `json:"email"`
	PreferredPersonalityID *int64          `json:"preferredPersonalityId"`
	Metadata               json.RawMessage `json:"metadata"`
}

func userToPayload(u *store.User) userPayload {
	out := userPayload{
		ID:       u.ID,
		Username: u.Username.String,
		Email:    u.Email.String,
		Metadata: u.Metadata,
	}
	if u.PreferredPersonalityID.Valid {
		id := u.PreferredPersonalityID.Int64
		out.PreferredPersonalityID = &id
	}
	return out
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.store.CreateUser(r.Context(), store.UserFields{
		Username:               req.Username,
		Email:                  req.Email,
		PreferredPersonalityID: req.PreferredPersonalityID,
		Metadata:               req.Metadata,
	})
	if err != nil {
		observability.WithTrace(r.Context()).Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, userToPayload(created))
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := s.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		observability.WithTrace(r.Context()).Error("get user", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, userToPayload(u))
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req userUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.store.UpdateUser(r.Context(), id, store.UserUpdate{
		Username:               req.Username,
		Email:                  req.Email,
		PreferredPersonalityID: req.PreferredPersonalityID,
		Metadata:               req.Metadata,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		observability.WithTrace(r.Context()).Error("update user", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, userToPayload(u))
}

// --- health ---

type healthResponse struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Version string    `json:"version"`
	Uptime  float64   `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Time:    time.Now(),
		Version: version.Version,
		Uptime:  time.Since(s.startedAt).Seconds(),
	})
}
