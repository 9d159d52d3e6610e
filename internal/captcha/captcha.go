package captcha

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/config"
)

// Alphabet excludes visually ambiguous characters (I, O, 0, 1).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	defaultLength = 5
	defaultWidth  = 140
	defaultHeight = 50
	idBytes       = 16
)

// Issued is what a client receives for a new challenge.
type Issued struct {
	ID        string
	Image     []byte
	ExpiresIn time.Duration
}

type Issuer struct {
	store  Store
	ttl    time.Duration
	length int
	width  int
	height int
	log    *zap.Logger
	now    func() time.Time
	code   func(n int) (string, error)
}

type Option func(*Issuer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithCodeSource replaces the random code generator.
func WithCodeSource(code func(n int) (string, error)) Option {
	return func(i *Issuer) { i.code = code }
}

func NewIssuer(cfg *config.CaptchaConfig, store Store, log *zap.Logger, opts ...Option) *Issuer {
	i := &Issuer{
		store:  store,
		ttl:    cfg.TTL,
		length: cfg.Length,
		width:  cfg.Width,
		height: cfg.Height,
		log:    log,
		now:    time.Now,
		code:   GenerateCode,
	}
	if i.length <= 0 {
		i.length = defaultLength
	}
	if i.width <= 0 {
		i.width = defaultWidth
	}
	if i.height <= 0 {
		i.height = defaultHeight
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) Issue(_ context.Context) (*Issued, error) {
	i.Sweep()

	text, err := i.code(i.length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha code: %w", err)
	}

	img, err := Render(text, i.width, i.height)
	if err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha id: %w", err)
	}

	i.store.Put(id, Challenge{
		Code:      strings.ToLower(text),
		ExpiresAt: i.now().Add(i.ttl),
	})

	return &Issued{ID: id, Image: img, ExpiresIn: i.ttl}, nil
}

// ValidateAndConsume burns the challenge whether or not the answer matches,
// including an empty answer.
func (i *Issuer) ValidateAndConsume(id, code string) bool {
	i.Sweep()

	if id == "" {
		return false
	}

	c, ok := i.store.Take(id)
	if !ok {
		return false
	}
	if c.expired(i.now()) {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(code))
	return answer != "" && answer == c.Code
}

// Sweep drops expired challenges and reports how many were removed.
func (i *Issuer) Sweep() int {
	removed := i.store.Sweep(i.now())
	if removed > 0 {
		i.log.Debug("swept expired captchas",
			zap.Int("removed", removed),
			zap.Int("pending", i.store.Len()))
	}
	return removed
}

// GenerateCode draws n characters from Alphabet using crypto/rand.
func GenerateCode(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	limit := big.NewInt(int64(len(Alphabet)))
	for j := 0; j < n; j++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(Alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
