package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

type PasswordHasher struct {
	cost  int
	dummy []byte
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &PasswordHasher{cost: cost}
	// used to equalise timing for unknown usernames
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte("assessgate-timing-guard"), cost)
	return h
}

// Hash always produces a bcrypt hash. Legacy digests are never written.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	return string(bytes), err
}

// Verify accepts bcrypt(plain), bcrypt(sha256hex(plain)) for migrated
// accounts, and bare sha256hex(plain) for accounts never rehashed.
func (h *PasswordHasher) Verify(plain, stored string) bool {
	if stored == "" {
		return false
	}

	if isBcrypt(stored) {
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil {
			return true
		}
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(legacyDigest(plain))) == nil
	}

	return subtle.ConstantTimeCompare([]byte(legacyDigest(plain)), []byte(stored)) == 1
}

// BurnTime performs one bcrypt comparison against a fixed hash.
func (h *PasswordHasher) BurnTime(plain string) {
	if h.dummy != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
	}
}

func isBcrypt(stored string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}

func legacyDigest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CredentialVerifier checks transport-encrypted passwords against stored
// hashes.
type CredentialVerifier struct {
	key    *TransportKey
	hasher *PasswordHasher
	log    *zap.Logger
}

func NewCredentialVerifier(key *TransportKey, hasher *PasswordHasher, log *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		key:    key,
		hasher: hasher,
		log:    log,
	}
}

func (v *CredentialVerifier) Verify(ciphertext, stored string) bool {
	plain, err := v.key.Decrypt(ciphertext)
	if err != nil {
		v.log.Debug("transport decryption failed", zap.Error(err))
		return false
	}
	return v.hasher.Verify(plain, stored)
}
