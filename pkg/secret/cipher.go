package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// DataKeyEnv names the environment variable holding the base64 data key.
const DataKeyEnv = "DBINIT_DATA_KEY"

const (
	nonceSize    = 12
	keySize      = 32
	versionMagic = byte('G')
)

// ErrNoDataKey is returned when an encrypted value is found but no data key is configured.
var ErrNoDataKey = errors.New(DataKeyEnv + " environment variable is required to decrypt values")

type Cipher interface {
	Encrypt(aad, plainText []byte) ([]byte, error)
	Decrypt(aad, packedText []byte) ([]byte, error)
}

// Symmetric is an AES-GCM cipher. Packed output is version || nonce || ciphertext+tag.
type Symmetric struct {
	aead cipher.AEAD
}

func NewSymmetric(key []byte) (*Symmetric, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("data key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Symmetric{aead: aead}, nil
}

// CipherFromEnv builds a cipher from DBINIT_DATA_KEY. It returns ErrNoDataKey when unset.
func CipherFromEnv() (*Symmetric, error) {
	encoded, ok := os.LookupEnv(DataKeyEnv)
	if !ok || encoded == "" {
		return nil, ErrNoDataKey
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", DataKeyEnv, err)
	}
	return NewSymmetric(key)
}

// GenerateKey returns a fresh random data key.
func GenerateKey() ([]byte, error) {
	return RandomBytes(keySize)
}

func RandomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Symmetric) Encrypt(aad, plainText []byte) ([]byte, error) {
	nonce, err := RandomBytes(nonceSize)
	if err != nil {
		return nil, err
	}

	packed := make([]byte, 0, 1+nonceSize+len(plainText)+s.aead.Overhead())
	packed = append(packed, versionMagic)
	packed = append(packed, nonce...)
	return s.aead.Seal(packed, nonce, plainText, aad), nil
}

func (s *Symmetric) Decrypt(aad, packedText []byte) ([]byte, error) {
	if len(packedText) < 1+nonceSize+s.aead.Overhead() {
		return nil, errors.New("ciphertext is too short")
	}
	if packedText[0] != versionMagic {
		return nil, fmt.Errorf("unsupported ciphertext version %q", packedText[0])
	}

	nonce := packedText[1 : 1+nonceSize]
	return s.aead.Open(nil, nonce, packedText[1+nonceSize:], aad)
}
