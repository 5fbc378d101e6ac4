package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trestle/internal/auth"
	"trestle/internal/schedule"

	"gorm.io/gorm"
)

type NoticeHandler struct {
	DB *gorm.DB
}

type noticeReq struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var req noticeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "title and body required")
		return
	}

	n := schedule.Notice{ClubID: clubID, AuthorID: uid, Title: req.Title, Body: req.Body}
	if err := h.DB.WithContext(r.Context()).Create(&n).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, n)
}

// List returns published notices; drafts are included only for staff or
// with ?drafts=true from the author's own club feed.
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}

	q := h.DB.WithContext(r.Context()).Where("club_id = ?", clubID)
	if r.URL.Query().Get("drafts") != "true" {
		q = q.Where("published_at is not null")
	}

	var notices []schedule.Notice
	if err := q.Order("created_at desc").Find(&notices).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, notices)
}

func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, ok := h.load(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	n, ok := h.load(w, r)
	if !ok {
		return
	}
	var req noticeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		n.Title = title
	}
	if strings.TrimSpace(req.Body) != "" {
		n.Body = req.Body
	}
	if err := h.DB.WithContext(r.Context()).Save(n).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *NoticeHandler) Publish(w http.ResponseWriter, r *http.Request) {
	n, ok := h.load(w, r)
	if !ok {
		return
	}
	if n.PublishedAt != nil {
		writeError(w, http.StatusConflict, "notice already published")
		return
	}

	now := time.Now()
	n.PublishedAt = &now
	if err := h.DB.WithContext(r.Context()).Save(n).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(n).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": n.ID})
}

func (h *NoticeHandler) load(w http.ResponseWriter, r *http.Request) (*schedule.Notice, bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}
	noticeID, ok := urlID(r, "noticeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return nil, false
	}

	var n schedule.Notice
	err := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", noticeID, clubID).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "notice not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return &n, true
}
