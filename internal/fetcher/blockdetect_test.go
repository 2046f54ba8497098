package fetcher

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock_Cloudflare403(t *testing.T) {
	blocked, bt := DetectBlock(403, http.Header{"Cf-Ray": {"abc123"}}, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_Cloudflare503Server(t *testing.T) {
	blocked, bt := DetectBlock(503, http.Header{"Server": {"cloudflare"}}, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_Akamai(t *testing.T) {
	body := []byte("<h1>Access Denied</h1>You don't have permission. Reference #18.abc")
	blocked, bt := DetectBlock(200, http.Header{}, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockAkamai, bt)
}

func TestDetectBlock_Captcha(t *testing.T) {
	blocked, bt := DetectBlock(200, http.Header{}, []byte(`<div class="g-recaptcha"></div>`))
	assert.True(t, blocked)
	assert.Equal(t, BlockCaptcha, bt)
}

func TestDetectBlock_NormalPage(t *testing.T) {
	blocked, bt := DetectBlock(200, http.Header{}, []byte("<p>Fitch Ratings affirms Vale at BBB-</p>"))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectBlock_LargePageIgnoresMarkers(t *testing.T) {
	body := []byte(strings.Repeat("x", 70*1024) + "g-recaptcha")
	blocked, _ := DetectBlock(200, http.Header{}, body)
	assert.False(t, blocked)
}
