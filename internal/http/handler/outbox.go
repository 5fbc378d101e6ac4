package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trestle/internal/outbox"
)

type OutboxHandler struct {
	Svc *outbox.Service
}

func (h *OutboxHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req outbox.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	msg, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, outbox.ErrMissingRecipient) ||
			errors.Is(err, outbox.ErrMissingSubject) ||
			errors.Is(err, outbox.ErrMissingBody) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusCreated, msg)
}

func (h *OutboxHandler) List(w http.ResponseWriter, r *http.Request) {
	order := "desc"
	if r.URL.Query().Get("order") == "asc" {
		order = "asc"
	}
	f := outbox.ListFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
		Order:  order,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := outbox.Status(s)
		if status != outbox.StatusPending && status != outbox.StatusSent && status != outbox.StatusFailed {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		f.Status = &status
	}

	msgs, err := h.Svc.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func (h *OutboxHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, msg)
}

// Update applies raw field-level changes. It deliberately bypasses the
// state machine, matching the operator escape hatch the service exposes.
func (h *OutboxHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	msg, err := h.Svc.Update(r.Context(), id, fields)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, msg)
}

func (h *OutboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]uint64{"id": deleted})
}

func (h *OutboxHandler) Pending(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Svc.GetPending(r.Context(), queryInt(r, "limit", outbox.DefaultBatchLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func (h *OutboxHandler) Failed(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Svc.GetFailed(r.Context(), queryInt(r, "limit", outbox.DefaultBatchLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func (h *OutboxHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.GetQueueStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (h *OutboxHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := h.Svc.MarkAsSent(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, msg)
}

type markFailedReq struct {
	Error string `json:"error"`
}

func (h *OutboxHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var req markFailedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Error) == "" {
		writeError(w, http.StatusBadRequest, "error message required")
		return
	}

	msg, err := h.Svc.MarkAsFailed(r.Context(), id, req.Error)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, msg)
}

func (h *OutboxHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "messageID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := h.Svc.RetryOne(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, msg)
}

func (h *OutboxHandler) RetryAll(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Svc.RetryAllRecoverable(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func (h *OutboxHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, outbox.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
