package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
	"github.com/elskow/assessgate/internal/auth"
	"github.com/elskow/assessgate/internal/captcha"
	"github.com/elskow/assessgate/internal/config"
	"github.com/elskow/assessgate/internal/oplog"
	"github.com/elskow/assessgate/internal/storage"
)

type RouterParams struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	CaptchaHandler *captcha.Handler
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.AuthMiddleware
	StorageHandler *storage.Handler
	OplogHandler   *oplog.Handler
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(p.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(corsHandler(p.Config.Server.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route(api.Prefix, func(r chi.Router) {
		r.Get(api.Health, func(w http.ResponseWriter, _ *http.Request) {
			api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route(api.AuthPrefix, func(r chi.Router) {
			captchaLimit := rateLimit(p.Config.Captcha.RateLimit, p.Config.Captcha.RateLimitWindow)
			loginLimit := rateLimit(p.Config.Auth.LoginRateLimit, p.Config.Auth.LoginRateLimitWindow)

			r.With(captchaLimit).Get(api.AuthCaptcha, p.CaptchaHandler.Issue)
			r.Get(api.AuthPublicKey, p.AuthHandler.PublicKey)
			r.With(loginLimit).Post(api.AuthLogin, p.AuthHandler.Login)
			r.With(loginLimit).Post(api.AuthRegister, p.AuthHandler.Register)

			r.Group(func(r chi.Router) {
				r.Use(p.AuthMiddleware.Authenticate)
				r.Post(api.AuthChangePassword, p.AuthHandler.ChangePassword)
				r.Get(api.AuthMe, p.AuthHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(p.AuthMiddleware.Authenticate)
			r.Post(api.Uploads, p.StorageHandler.Upload)
			r.Post(api.UploadsPresign, p.StorageHandler.Presign)
			r.Post(api.Logs, p.OplogHandler.Save)
			r.Get(api.Logs, p.OplogHandler.List)
		})
	})

	return r
}

// rateLimit throttles per client IP; a non-positive limit disables it.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			api.Error(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}
