package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

type loginRequest struct {
	Username    string `json:"username" validate:"required,max=64"`
	Password    string `json:"password" validate:"required"`
	CaptchaID   string `json:"captcha_id" validate:"required"`
	CaptchaCode string `json:"captcha_code" validate:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required"`
	School   string `json:"school" validate:"max=128"`
	Grade    string `json:"grade" validate:"max=32"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type profileResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	School    string    `json:"school"`
	Grade     string    `json:"grade"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) PublicKey(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, map[string]string{"public_key": h.service.PublicKeyPEM()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.Login(r.Context(), LoginInput{
		Username:    req.Username,
		Password:    req.Password,
		CaptchaID:   req.CaptchaID,
		CaptchaCode: req.CaptchaCode,
	})
	if err != nil {
		var locked *LockedOutError
		switch {
		case errors.As(err, &locked):
			retry := int(math.Ceil(locked.Remaining.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			api.Error(w, http.StatusTooManyRequests, locked.Error())
		case errors.Is(err, ErrCaptchaInvalid):
			api.Error(w, http.StatusBadRequest, ErrCaptchaInvalid.Error())
		case errors.Is(err, ErrCredentialsInvalid):
			api.Error(w, http.StatusUnauthorized, ErrCredentialsInvalid.Error())
		default:
			h.internalError(w, "login failed", err)
		}
		return
	}

	api.JSON(w, http.StatusOK, loginResponse{
		AccessToken: session.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   session.ExpiresAt,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.service.Register(r.Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
		School:   req.School,
		Grade:    req.Grade,
	})
	if err != nil {
		var weak *WeakPasswordError
		switch {
		case errors.Is(err, ErrRegistrationDisabled):
			api.Error(w, http.StatusForbidden, err.Error())
		case errors.As(err, &weak):
			api.Error(w, http.StatusBadRequest, weak.Reason)
		case errors.Is(err, ErrDecryptionFailed):
			api.Error(w, http.StatusBadRequest, "invalid password payload")
		case errors.Is(err, ErrUserExists):
			api.Error(w, http.StatusConflict, "username already taken")
		default:
			h.internalError(w, "registration failed", err)
		}
		return
	}

	api.JSON(w, http.StatusCreated, toProfile(account))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username, err := GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
		return
	}

	var req changePasswordRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.service.ChangePassword(r.Context(), username, req.OldPassword, req.NewPassword)
	if err != nil {
		var weak *WeakPasswordError
		switch {
		case errors.Is(err, ErrIncorrectOldPassword):
			api.Error(w, http.StatusBadRequest, "Incorrect old password")
		case errors.As(err, &weak):
			api.Error(w, http.StatusBadRequest, weak.Reason)
		case errors.Is(err, ErrDecryptionFailed):
			api.Error(w, http.StatusBadRequest, "invalid password payload")
		case errors.Is(err, ErrUserNotFound):
			api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
		default:
			h.internalError(w, "change password failed", err)
		}
		return
	}

	api.JSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, err := GetUserFromContext(r.Context())
	if err != nil {
		api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
		return
	}

	account, err := h.service.Profile(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
			return
		}
		h.internalError(w, "profile lookup failed", err)
		return
	}

	api.JSON(w, http.StatusOK, toProfile(account))
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	api.Error(w, http.StatusInternalServerError, "internal server error")
}

func toProfile(a *Account) profileResponse {
	return profileResponse{
		ID:        a.ID,
		Username:  a.Username,
		School:    a.School,
		Grade:     a.Grade,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}
