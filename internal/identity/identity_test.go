package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Mozilla/5.0", "en-US")
	b := Fingerprint("Mozilla/5.0", "en-US")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFingerprintVariesWithHeaders(t *testing.T) {
	base := Fingerprint("Mozilla/5.0", "en-US")
	assert.NotEqual(t, base, Fingerprint("Mozilla/5.0", "zh-CN"))
	assert.NotEqual(t, base, Fingerprint("curl/8.0", "en-US"))
	// 拼接边界不同也要区分
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/eliza/chat", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US")

	id := FromRequest(req, "203.0.113.7")

	assert.Equal(t, "203.0.113.7", id.IP)
	assert.Equal(t, Fingerprint("Mozilla/5.0", "en-US"), id.Fingerprint)
	assert.Equal(t, "203.0.113.7:"+id.Fingerprint, id.Key())
}
