package secret

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Prefix marks a sealed configuration value.
const Prefix = "enc:"

func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Seal encrypts value bound to the attribute name.
func Seal(c Cipher, name, value string) (string, error) {
	packed, err := c.Encrypt([]byte(name), []byte(value))
	if err != nil {
		return "", err
	}
	return Prefix + base64.StdEncoding.EncodeToString(packed), nil
}

// Open decrypts a sealed value. Values without the prefix are returned unchanged.
func Open(c Cipher, name, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if c == nil {
		return "", ErrNoDataKey
	}

	packed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("%s: malformed encrypted value: %w", name, err)
	}
	plain, err := c.Decrypt([]byte(name), packed)
	if err != nil {
		return "", fmt.Errorf("%s: unable to decrypt value: %w", name, err)
	}
	return string(plain), nil
}
