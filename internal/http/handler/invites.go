package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trestle/internal/auth"
	"trestle/internal/club"

	"gorm.io/gorm"
)

type InviteHandler struct {
	DB  *gorm.DB
	Svc *club.Service
	TTL time.Duration
}

type createInviteReq struct {
	Email string `json:"email"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createInviteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	inv, err := h.Svc.CreateInvite(r.Context(), clubID, uid, req.Email, h.TTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, inv)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var invites []club.InviteToken
	err := h.DB.WithContext(r.Context()).
		Where("club_id = ?", clubID).
		Order("created_at desc").
		Find(&invites).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, invites)
}

func (h *InviteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	inviteID, ok := urlID(r, "inviteID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid invite id")
		return
	}

	tx := h.DB.WithContext(r.Context()).
		Where("id = ? AND club_id = ?", inviteID, clubID).
		Delete(&club.InviteToken{})
	if tx.Error != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if tx.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "invite not found")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": inviteID})
}

type redeemReq struct {
	Token string `json:"token"`
}

func (h *InviteHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req redeemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	m, err := h.Svc.RedeemInvite(r.Context(), strings.TrimSpace(req.Token), uid)
	switch {
	case err == nil:
		writeData(w, http.StatusCreated, m)
	case errors.Is(err, club.ErrNotFound):
		writeError(w, http.StatusNotFound, "invite not found")
	case errors.Is(err, club.ErrInviteExpired):
		writeError(w, http.StatusGone, "invite expired")
	case errors.Is(err, club.ErrInviteUsed):
		writeError(w, http.StatusConflict, "invite already used")
	case errors.Is(err, club.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "already a member")
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
