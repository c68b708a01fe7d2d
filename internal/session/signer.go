package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// DeriveKey turns a configured secret into a cookie signing key.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte("portfolio-session-cookie:" + secret))
	return sum[:]
}

type signer struct {
	key []byte
}

// sign appends an HMAC-SHA256 signature bound to the cookie name.
func (s signer) sign(name, value string) string {
	return value + "." + s.mac(name, value)
}

// verify returns the original value when the signature matches.
func (s signer) verify(name, signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(name, value))) {
		return "", false
	}
	return value, true
}

func (s signer) mac(name, value string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(name))
	h.Write([]byte{'='})
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
