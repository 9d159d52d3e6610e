package storage

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
	"github.com/elskow/assessgate/internal/auth"
	"github.com/elskow/assessgate/internal/config"
)

const defaultContentType = "application/octet-stream"

type Handler struct {
	store         ObjectStore
	presignExpiry time.Duration
	maxUploadSize int64
	log           *zap.Logger
}

type uploadResponse struct {
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size"`
}

type presignRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"max=255"`
}

type presignResponse struct {
	Bucket           string `json:"bucket"`
	ObjectKey        string `json:"object_key"`
	URL              string `json:"url"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func NewHandler(cfg *config.StorageConfig, store ObjectStore, log *zap.Logger) *Handler {
	return &Handler{
		store:         store,
		presignExpiry: cfg.PresignExpiry,
		maxUploadSize: cfg.MaxUploadSize,
		log:           log,
	}
}

// Upload proxies a multipart "file" field into the object store.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	username, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, auth.ErrTokenInvalid.Error())
		return
	}

	if r.ContentLength > h.maxUploadSize {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	key := objectKey(username, header.Filename)
	if err := h.store.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		h.storeError(w, "upload failed", err)
		return
	}

	h.log.Info("object uploaded",
		zap.String("username", username),
		zap.String("key", key),
		zap.Int64("size", header.Size))

	api.JSON(w, http.StatusCreated, uploadResponse{
		Bucket:    h.store.Bucket(),
		ObjectKey: key,
		Size:      header.Size,
	})
}

// Presign returns a URL the client can PUT the object to directly.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	username, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, auth.ErrTokenInvalid.Error())
		return
	}

	var req presignRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(req.FileName))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := objectKey(username, req.FileName)
	url, err := h.store.PresignPut(r.Context(), key, contentType, h.presignExpiry)
	if err != nil {
		h.storeError(w, "presign failed", err)
		return
	}

	api.JSON(w, http.StatusOK, presignResponse{
		Bucket:           h.store.Bucket(),
		ObjectKey:        key,
		URL:              url,
		ExpiresInSeconds: int(h.presignExpiry.Seconds()),
	})
}

func (h *Handler) storeError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrStorageDisabled) {
		api.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.log.Error(msg, zap.Error(err))
	api.Error(w, http.StatusBadGateway, "object storage unavailable")
}

// objectKey namespaces uploads per user and keeps only the extension of the
// client-supplied name.
func objectKey(username, fileName string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(fileName)))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return fmt.Sprintf("uploads/%s/%s%s", username, uuid.NewString(), ext)
}
