// Package userkey derives the stable, non-reversible identifier used to
// represent a user across logs and the audit trail without ever writing a
// raw phone number to either.
package userkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Derive returns base64url(HMAC_SHA256(pepper, phone)) with padding
// stripped, stable for a given (phone, pepper) pair and not reversible
// without the pepper.
func Derive(phone, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(phone))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
