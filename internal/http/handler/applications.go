package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"trestle/internal/auth"
	"trestle/internal/club"

	"gorm.io/gorm"
)

type ApplicationHandler struct {
	DB  *gorm.DB
	Svc *club.Service
}

type applicationReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Apply is public: prospective members file an application without an
// account.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var req applicationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email required")
		return
	}

	var n int64
	if err := h.DB.WithContext(r.Context()).Model(&club.Club{}).Where("id = ?", clubID).Count(&n).Error; err != nil || n == 0 {
		writeError(w, http.StatusNotFound, "club not found")
		return
	}

	app := club.Application{
		ClubID:  clubID,
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Status:  club.ApplicationPending,
	}
	if err := h.DB.WithContext(r.Context()).Create(&app).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}

	q := h.DB.WithContext(r.Context()).Where("club_id = ?", clubID)
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var apps []club.Application
	if err := q.Order("created_at desc").Find(&apps).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *ApplicationHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	appID, ok := urlID(r, "appID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var (
		app *club.Application
		err error
	)
	if approve {
		app, err = h.Svc.ApproveApplication(r.Context(), clubID, appID, uid)
	} else {
		app, err = h.Svc.RejectApplication(r.Context(), clubID, appID, uid)
	}
	switch {
	case err == nil:
		writeData(w, http.StatusOK, app)
	case errors.Is(err, club.ErrNotFound):
		writeError(w, http.StatusNotFound, "application not found")
	case errors.Is(err, club.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "application already decided")
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
