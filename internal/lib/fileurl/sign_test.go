package fileurl

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	link := SignURL("65f0c0ffee0000000000a001", "s3cret", time.Hour, now)
	require.True(t, strings.HasPrefix(link, Prefix+"65f0c0ffee0000000000a001?"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()

	assert.True(t, Verify("65f0c0ffee0000000000a001", q.Get("expires"), q.Get("sig"), "s3cret", now.Add(59*time.Minute)))
	assert.False(t, Verify("65f0c0ffee0000000000a001", q.Get("expires"), q.Get("sig"), "s3cret", now.Add(61*time.Minute)), "expired")
	assert.False(t, Verify("65f0c0ffee0000000000a002", q.Get("expires"), q.Get("sig"), "s3cret", now), "other file")
	assert.False(t, Verify("65f0c0ffee0000000000a001", q.Get("expires"), q.Get("sig"), "other", now), "other secret")
	assert.False(t, Verify("65f0c0ffee0000000000a001", "soon", q.Get("sig"), "s3cret", now), "bad expiry")
	assert.False(t, Verify("65f0c0ffee0000000000a001", q.Get("expires"), q.Get("sig"), "", now), "no secret")
}
