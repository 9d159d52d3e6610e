package api

// HTTP route prefixes
const (
	Prefix     = "/api"
	AuthPrefix = "/auth"
)

// Authentication endpoints, relative to AuthPrefix
const (
	AuthCaptcha        = "/captcha"
	AuthPublicKey      = "/public-key"
	AuthLogin          = "/login"
	AuthRegister       = "/register"
	AuthChangePassword = "/change-password"
	AuthMe             = "/me"
)

// Resource endpoints, relative to Prefix
const (
	Uploads        = "/uploads"
	UploadsPresign = "/uploads/presign"
	Logs           = "/logs"
	Health         = "/health"
)

// RateLimitedEndpoints are throttled per client IP
var RateLimitedEndpoints = map[string]bool{
	AuthCaptcha: true,
	AuthLogin:   true,
}
