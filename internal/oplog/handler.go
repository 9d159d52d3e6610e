package oplog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
	"github.com/elskow/assessgate/internal/auth"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

type saveRequest struct {
	SubmitID      *uint           `json:"submit_id"`
	OpTime        *time.Time      `json:"op_time"`
	OpType        string          `json:"op_type" validate:"required,max=32"`
	OpObject      string          `json:"op_object" validate:"max=32"`
	ObjectNo      string          `json:"object_no" validate:"max=32"`
	ObjectName    string          `json:"object_name" validate:"max=64"`
	DataBefore    json.RawMessage `json:"data_before"`
	DataAfter     json.RawMessage `json:"data_after"`
	VoiceURL      string          `json:"voice_url" validate:"max=255"`
	ScreenshotURL string          `json:"screenshot_url" validate:"max=255"`
}

type logResponse struct {
	ID            uint            `json:"id"`
	UID           uint            `json:"uid"`
	SubmitID      *uint           `json:"submit_id,omitempty"`
	OpTime        time.Time       `json:"op_time"`
	OpType        string          `json:"op_type"`
	OpObject      string          `json:"op_object"`
	ObjectNo      string          `json:"object_no"`
	ObjectName    string          `json:"object_name"`
	DataBefore    json.RawMessage `json:"data_before"`
	DataAfter     json.RawMessage `json:"data_after"`
	VoiceURL      string          `json:"voice_url"`
	ScreenshotURL string          `json:"screenshot_url"`
}

type listResponse struct {
	List []logResponse `json:"list"`
	Page int           `json:"page"`
	Size int           `json:"size"`
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	username, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, auth.ErrTokenInvalid.Error())
		return
	}

	var req saveRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := Entry{
		SubmitID:      req.SubmitID,
		OpType:        req.OpType,
		OpObject:      req.OpObject,
		ObjectNo:      req.ObjectNo,
		ObjectName:    req.ObjectName,
		DataBefore:    req.DataBefore,
		DataAfter:     req.DataAfter,
		VoiceURL:      req.VoiceURL,
		ScreenshotURL: req.ScreenshotURL,
	}
	if req.OpTime != nil {
		entry.OpTime = *req.OpTime
	}

	saved, err := h.service.Save(r.Context(), username, entry)
	if err != nil {
		h.handleError(w, "failed to save operation log", err)
		return
	}

	api.JSON(w, http.StatusCreated, map[string]uint{"id": saved.ID})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	username, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, auth.ErrTokenInvalid.Error())
		return
	}

	page, size := normalizePage(queryInt(r, "page"), queryInt(r, "size"))
	entries, err := h.service.List(r.Context(), username, page, size)
	if err != nil {
		h.handleError(w, "failed to list operation logs", err)
		return
	}

	resp := listResponse{List: make([]logResponse, 0, len(entries)), Page: page, Size: size}
	for _, e := range entries {
		resp.List = append(resp.List, toResponse(e))
	}
	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		api.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		api.Error(w, http.StatusUnauthorized, auth.ErrTokenInvalid.Error())
	default:
		h.log.Error(msg, zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func toResponse(e OperationLog) logResponse {
	return logResponse{
		ID:            e.ID,
		UID:           e.UID,
		SubmitID:      e.SubmitID,
		OpTime:        e.OpTime,
		OpType:        e.OpType,
		OpObject:      e.OpObject,
		ObjectNo:      e.ObjectNo,
		ObjectName:    e.ObjectName,
		DataBefore:    rawOrNull(e.DataBefore),
		DataAfter:     rawOrNull(e.DataAfter),
		VoiceURL:      e.VoiceURL,
		ScreenshotURL: e.ScreenshotURL,
	}
}

func rawOrNull(s *string) json.RawMessage {
	if s == nil {
		return json.RawMessage("null")
	}
	return json.RawMessage(*s)
}
