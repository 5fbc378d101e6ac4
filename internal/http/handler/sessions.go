package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trestle/internal/schedule"

	"gorm.io/gorm"
)

type SessionHandler struct {
	DB *gorm.DB
}

type sessionReq struct {
	Title    string   `json:"title"`
	Location string   `json:"location"`
	StartsAt string   `json:"starts_at"`
	EndsAt   string   `json:"ends_at"`
	Tracks   []string `json:"tracks"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	starts, ends, ok := parseWindow(w, req.StartsAt, req.EndsAt)
	if !ok {
		return
	}

	s := schedule.Session{
		ClubID:   clubID,
		Title:    req.Title,
		Location: req.Location,
		StartsAt: starts,
		EndsAt:   ends,
		Tracks:   req.Tracks,
	}
	if err := h.DB.WithContext(r.Context()).Create(&s).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, s)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}

	q := h.DB.WithContext(r.Context()).Where("club_id = ?", clubID)
	if r.URL.Query().Get("upcoming") == "true" {
		q = q.Where("starts_at > ?", time.Now())
	}

	var sessions []schedule.Session
	if err := q.Order("starts_at asc").Find(&sessions).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, sessions)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		s.Title = title
	}
	if req.Location != "" {
		s.Location = req.Location
	}
	if req.Tracks != nil {
		s.Tracks = req.Tracks
	}
	if req.StartsAt != "" || req.EndsAt != "" {
		startsStr, endsStr := req.StartsAt, req.EndsAt
		if startsStr == "" {
			startsStr = s.StartsAt.Format(time.RFC3339)
		}
		if endsStr == "" {
			endsStr = s.EndsAt.Format(time.RFC3339)
		}
		starts, ends, ok := parseWindow(w, startsStr, endsStr)
		if !ok {
			return
		}
		s.StartsAt = starts
		s.EndsAt = ends
	}

	if err := h.DB.WithContext(r.Context()).Save(s).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(s).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": s.ID})
}

func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (*schedule.Session, bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}
	sessionID, ok := urlID(r, "sessionID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	var s schedule.Session
	err := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", sessionID, clubID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return &s, true
}

// parseWindow validates an RFC3339 start/end pair, writing the 400 itself
// so callers just bail on !ok.
func parseWindow(w http.ResponseWriter, startsAt, endsAt string) (time.Time, time.Time, bool) {
	starts, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starts_at (RFC3339)")
		return time.Time{}, time.Time{}, false
	}
	ends, err := time.Parse(time.RFC3339, endsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ends_at (RFC3339)")
		return time.Time{}, time.Time{}, false
	}
	if !ends.After(starts) {
		writeError(w, http.StatusBadRequest, "ends_at must be after starts_at")
		return time.Time{}, time.Time{}, false
	}
	return starts, ends, true
}
