package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"trestle/internal/auth"
	"trestle/internal/tower"

	"gorm.io/gorm"
)

type IssueHandler struct {
	DB *gorm.DB
}

type createIssueReq struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	TowerID *uint64 `json:"tower_id"`
}

func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createIssueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}

	if req.TowerID != nil {
		var n int64
		err := h.DB.WithContext(r.Context()).
			Model(&tower.Tower{}).
			Where("id = ? AND club_id = ?", *req.TowerID, clubID).
			Count(&n).Error
		if err != nil || n == 0 {
			writeError(w, http.StatusBadRequest, "unknown tower for this club")
			return
		}
	}

	iss := tower.Issue{
		ClubID:   clubID,
		TowerID:  req.TowerID,
		AuthorID: uid,
		Title:    req.Title,
		Body:     req.Body,
		Status:   tower.IssueOpen,
	}
	if err := h.DB.WithContext(r.Context()).Create(&iss).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, iss)
}

func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}

	q := h.DB.WithContext(r.Context()).Where("club_id = ?", clubID)
	if status := r.URL.Query().Get("status"); status != "" {
		if !tower.ValidIssueStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}

	var issues []tower.Issue
	if err := q.Order("created_at desc").Find(&issues).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, issues)
}

func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	iss, ok := h.load(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, iss)
}

type updateIssueReq struct {
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	Status *string `json:"status"`
}

func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	iss, ok := h.load(w, r)
	if !ok {
		return
	}
	var req updateIssueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		iss.Title = title
	}
	if req.Body != nil {
		iss.Body = *req.Body
	}
	if req.Status != nil {
		if !tower.ValidIssueStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		iss.Status = *req.Status
	}

	if err := h.DB.WithContext(r.Context()).Save(iss).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, iss)
}

func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	iss, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(iss).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": iss.ID})
}

func (h *IssueHandler) load(w http.ResponseWriter, r *http.Request) (*tower.Issue, bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}
	issueID, ok := urlID(r, "issueID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return nil, false
	}

	var iss tower.Issue
	err := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", issueID, clubID).
		First(&iss).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "issue not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return &iss, true
}
