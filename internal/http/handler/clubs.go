package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"trestle/internal/club"

	"gorm.io/gorm"
)

type ClubHandler struct {
	DB *gorm.DB
}

type clubReq struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (h *ClubHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clubReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug required")
		return
	}

	c := club.Club{Name: req.Name, Slug: req.Slug, Description: req.Description}
	if err := h.DB.WithContext(r.Context()).Create(&c).Error; err != nil {
		writeError(w, http.StatusConflict, "slug already used")
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	var clubs []club.Club
	if err := h.DB.WithContext(r.Context()).Order("name asc").Find(&clubs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, clubs)
}

func (h *ClubHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var c club.Club
	if err := h.DB.WithContext(r.Context()).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *ClubHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	var req clubReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	var c club.Club
	if err := h.DB.WithContext(r.Context()).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	if err := h.DB.WithContext(r.Context()).Save(&c).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *ClubHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "clubID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return
	}
	tx := h.DB.WithContext(r.Context()).Delete(&club.Club{}, id)
	if tx.Error != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if tx.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "club not found")
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": id})
}
