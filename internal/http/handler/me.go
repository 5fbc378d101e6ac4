package handler

import (
	"net/http"

	"trestle/internal/auth"
	"trestle/internal/club"

	"gorm.io/gorm"
)

type MeHandler struct {
	DB *gorm.DB
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.DB.WithContext(r.Context()).First(&u, uid).Error; err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var ms []club.Membership
	if err := h.DB.WithContext(r.Context()).Where("user_id = ?", uid).Find(&ms).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"user":        u,
		"memberships": ms,
	})
}
