package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trestle/internal/auth"
	"trestle/internal/tower"

	"gorm.io/gorm"
)

type TowerHandler struct {
	DB *gorm.DB
}

type towerReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (h *TowerHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var req towerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	t := tower.Tower{
		ClubID:      clubID,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	}
	if err := h.DB.WithContext(r.Context()).Create(&t).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, t)
}

func (h *TowerHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var towers []tower.Tower
	err := h.DB.WithContext(r.Context()).
		Where("club_id = ?", clubID).
		Order("name asc").
		Find(&towers).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, towers)
}

func (h *TowerHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TowerHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	var req towerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		t.Name = name
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.Location != "" {
		t.Location = req.Location
	}
	if err := h.DB.WithContext(r.Context()).Save(t).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TowerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(t).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": t.ID})
}

type reportReq struct {
	Summary      string `json:"summary"`
	Body         string `json:"body"`
	OperatingDay string `json:"operating_day"` // YYYY-MM-DD
}

func (h *TowerHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var req reportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Summary = strings.TrimSpace(req.Summary)
	if req.Summary == "" {
		writeError(w, http.StatusBadRequest, "summary required")
		return
	}
	day, err := time.Parse("2006-01-02", req.OperatingDay)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operating_day (YYYY-MM-DD)")
		return
	}

	rep := tower.TowerReport{
		ClubID:       t.ClubID,
		TowerID:      t.ID,
		AuthorID:     uid,
		Summary:      req.Summary,
		Body:         req.Body,
		OperatingDay: day,
	}
	if err := h.DB.WithContext(r.Context()).Create(&rep).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, rep)
}

func (h *TowerHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var reports []tower.TowerReport
	err := h.DB.WithContext(r.Context()).
		Where("tower_id = ?", t.ID).
		Order("operating_day desc, created_at desc").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, reports)
}

// load fetches the tower scoped by both URL ids so a tower from another
// club 404s instead of leaking.
func (h *TowerHandler) load(w http.ResponseWriter, r *http.Request) (*tower.Tower, bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}
	towerID, ok := urlID(r, "towerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tower id")
		return nil, false
	}

	var t tower.Tower
	err := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", towerID, clubID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "tower not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return &t, true
}
