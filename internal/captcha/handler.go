package captcha

import (
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
)

type Handler struct {
	issuer *Issuer
	log    *zap.Logger
}

type issueResponse struct {
	CaptchaID        string `json:"captcha_id"`
	Image            string `json:"image"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func NewHandler(issuer *Issuer, log *zap.Logger) *Handler {
	return &Handler{
		issuer: issuer,
		log:    log,
	}
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	issued, err := h.issuer.Issue(r.Context())
	if err != nil {
		h.log.Error("failed to issue captcha", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	api.JSON(w, http.StatusOK, issueResponse{
		CaptchaID:        issued.ID,
		Image:            DataURI(issued.Image),
		ExpiresInSeconds: int(issued.ExpiresIn.Seconds()),
	})
}

// DataURI wraps PNG bytes for direct use in an <img> src.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
