package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"trestle/internal/club"

	"gorm.io/gorm"
)

type MemberHandler struct {
	DB  *gorm.DB
	Svc *club.Service
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var ms []club.Membership
	err := h.DB.WithContext(r.Context()).
		Where("club_id = ?", clubID).
		Order("joined_at asc").
		Find(&ms).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, ms)
}

type addMemberReq struct {
	UserID uint64 `json:"user_id"`
}

func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var req addMemberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	m, err := h.Svc.AddMember(r.Context(), clubID, req.UserID)
	switch {
	case err == nil:
		writeData(w, http.StatusCreated, m)
	case errors.Is(err, club.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "already a member")
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

type assignSlotsReq struct {
	AddressNumber *int `json:"address_number"`
	TowerSlot     *int `json:"tower_slot"`
}

func (h *MemberHandler) AssignSlots(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req assignSlotsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	m, err := h.Svc.AssignSlots(r.Context(), clubID, userID, req.AddressNumber, req.TowerSlot)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, m)
	case errors.Is(err, club.ErrNotFound):
		writeError(w, http.StatusNotFound, "membership not found")
	case errors.Is(err, club.ErrAddressTaken), errors.Is(err, club.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	clubID, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	tx := h.DB.WithContext(r.Context()).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Delete(&club.Membership{})
	if tx.Error != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if tx.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "membership not found")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"club_id": clubID, "user_id": userID})
}
