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

type AppointmentHandler struct {
	DB *gorm.DB
}

type appointmentReq struct {
	Title    string `json:"title"`
	Notes    string `json:"notes"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var req appointmentReq
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

	appt := schedule.Appointment{
		ClubID:   clubID,
		UserID:   uid,
		Title:    req.Title,
		Notes:    req.Notes,
		StartsAt: starts,
		EndsAt:   ends,
	}
	if err := h.DB.WithContext(r.Context()).Create(&appt).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, appt)
}

// List returns the club's appointments; ?mine=true narrows to the caller's.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}

	q := h.DB.WithContext(r.Context()).Where("club_id = ?", clubID)
	if r.URL.Query().Get("mine") == "true" {
		uid, _ := auth.UserIDFromContext(r.Context())
		q = q.Where("user_id = ?", uid)
	}

	var appts []schedule.Appointment
	if err := q.Order("starts_at asc").Find(&appts).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.load(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.ownsOrStaff(w, r, appt) {
		return
	}
	var req appointmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		appt.Title = title
	}
	if req.Notes != "" {
		appt.Notes = req.Notes
	}
	if req.StartsAt != "" || req.EndsAt != "" {
		startsStr, endsStr := req.StartsAt, req.EndsAt
		if startsStr == "" {
			startsStr = appt.StartsAt.Format(time.RFC3339)
		}
		if endsStr == "" {
			endsStr = appt.EndsAt.Format(time.RFC3339)
		}
		starts, ends, ok := parseWindow(w, startsStr, endsStr)
		if !ok {
			return
		}
		appt.StartsAt = starts
		appt.EndsAt = ends
	}

	if err := h.DB.WithContext(r.Context()).Save(appt).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.ownsOrStaff(w, r, appt) {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(appt).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": appt.ID})
}

func (h *AppointmentHandler) load(w http.ResponseWriter, r *http.Request) (*schedule.Appointment, bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}
	apptID, ok := urlID(r, "appointmentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return nil, false
	}

	var appt schedule.Appointment
	err := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", apptID, clubID).
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	return &appt, true
}

// ownsOrStaff lets owners and staff mutate an appointment; other members
// can only read it.
func (h *AppointmentHandler) ownsOrStaff(w http.ResponseWriter, r *http.Request, appt *schedule.Appointment) bool {
	uid, _ := auth.UserIDFromContext(r.Context())
	if uid == appt.UserID {
		return true
	}

	var u auth.User
	if err := h.DB.WithContext(r.Context()).First(&u, uid).Error; err == nil && u.IsStaff() {
		return true
	}
	writeError(w, http.StatusForbidden, "not your appointment")
	return false
}
