package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"unicode/utf8"
)

const defaultRSAKeyBits = 2048

// TransportKey is the keypair clients use to encrypt passwords in flight.
// It lives only in memory, so every restart rotates it and clients must
// refetch the public key.
type TransportKey struct {
	private   *rsa.PrivateKey
	publicPEM string
}

func NewTransportKey(bits int) (*TransportKey, error) {
	if bits < defaultRSAKeyBits {
		bits = defaultRSAKeyBits
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate transport key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return &TransportKey{
		private:   priv,
		publicPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}, nil
}

func (k *TransportKey) PublicKeyPEM() string {
	return k.publicPEM
}

// Decrypt reverses RSA-OAEP(SHA-256) over a base64 payload. Every failure
// collapses into ErrDecryptionFailed.
func (k *TransportKey) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	plain, err := rsa.DecryptOAEP(sha256.New(), nil, k.private, raw, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if !utf8.Valid(plain) {
		return "", ErrDecryptionFailed
	}

	return string(plain), nil
}

// Encrypt is the client side of Decrypt.
func (k *TransportKey) Encrypt(plain string) (string, error) {
	raw, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &k.private.PublicKey, []byte(plain), nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
