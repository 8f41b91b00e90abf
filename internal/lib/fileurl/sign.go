// Package fileurl signs download links for archived images so they can be
// opened from <img> tags without a bearer token.
package fileurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const Prefix = "/api/v1/files/"

// SignURL returns a relative URL with expiry and HMAC-SHA256 signature over
// "{fileID}:{expiresUnix}".
func SignURL(fileID, secret string, ttl time.Duration, now time.Time) string {
	expires := now.Add(ttl).Unix()
	sig := computeHMAC(fileID, expires, secret)
	return fmt.Sprintf("%s%s?expires=%d&sig=%s", Prefix, fileID, expires, sig)
}

// Verify checks that the signature is valid and the link has not expired.
func Verify(fileID, expires, sig, secret string, now time.Time) bool {
	if secret == "" {
		return false
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > exp {
		return false
	}
	expected := computeHMAC(fileID, exp, secret)
	return hmac.Equal([]byte(sig), []byte(expected))
}

func computeHMAC(fileID string, expires int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s:%d", fileID, expires)))
	return hex.EncodeToString(mac.Sum(nil))
}
