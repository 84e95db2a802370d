// Package crypto holds the wallet key store, EIP-712 order signing and the
// HMAC request authentication used by the live Polymarket trader.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	kdfIterations = 480_000
	saltSize      = 16
	keySize       = 32
	sealVersion   = 1
)

var errEmptyPassword = errors.New("crypto: password must not be empty")

// sealedKey is the on-disk form of an encrypted wallet key.
type sealedKey struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource says where the wallet key comes from. A raw key wins over a
// sealed key file.
type KeySource struct {
	RawKey   string
	KeyFile  string
	Password string
}

// SealKey encrypts a hex private key with password (PBKDF2-SHA256 then
// AES-256-GCM) and returns the JSON document to store.
func SealKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errEmptyPassword
	}
	raw, err := decodeKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: salt: %w", err)
	}
	gcm, err := passwordAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}

	enc := base64.StdEncoding
	return json.MarshalIndent(sealedKey{
		Version:    sealVersion,
		Salt:       enc.EncodeToString(salt),
		Nonce:      enc.EncodeToString(nonce),
		Ciphertext: enc.EncodeToString(gcm.Seal(nil, nonce, raw, nil)),
	}, "", "  ")
}

// OpenKey reverses SealKey and returns the key as hex without a 0x prefix.
func OpenKey(doc []byte, password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	var sk sealedKey
	if err := json.Unmarshal(doc, &sk); err != nil {
		return "", fmt.Errorf("crypto: parse sealed key: %w", err)
	}
	if sk.Version != sealVersion {
		return "", fmt.Errorf("crypto: unsupported sealed key version %d", sk.Version)
	}

	enc := base64.StdEncoding
	salt, err := enc.DecodeString(sk.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: salt: %w", err)
	}
	nonce, err := enc.DecodeString(sk.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}
	ct, err := enc.DecodeString(sk.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: ciphertext: %w", err)
	}

	gcm, err := passwordAEAD(password, salt)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open sealed key (wrong password?): %w", err)
	}
	return hex.EncodeToString(plain), nil
}

// ResolveKey returns the hex private key described by src.
func ResolveKey(src KeySource) (string, error) {
	switch {
	case src.RawKey != "":
		if _, err := decodeKey(src.RawKey); err != nil {
			return "", err
		}
		return strings.TrimPrefix(src.RawKey, "0x"), nil
	case src.KeyFile != "":
		doc, err := os.ReadFile(src.KeyFile)
		if err != nil {
			return "", fmt.Errorf("crypto: read key file: %w", err)
		}
		return OpenKey(doc, src.Password)
	default:
		return "", errors.New("crypto: no wallet key configured")
	}
}

// LoadSigner resolves the key in src and builds a Signer for chainID.
func LoadSigner(src KeySource, chainID int64) (*Signer, error) {
	key, err := ResolveKey(src)
	if err != nil {
		return nil, err
	}
	return NewSigner(key, chainID)
}

func decodeKey(h string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: private key is not hex: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("crypto: private key must be %d bytes, got %d", keySize, len(raw))
	}
	return raw, nil
}

func passwordAEAD(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New))
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	return gcm, nil
}
