package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes an anti-bot interstitial.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockAkamai     BlockType = "akamai"
)

// DetectBlock reports whether a response is a bot challenge rather than the
// requested page.
func DetectBlock(status int, header http.Header, body []byte) (bool, BlockType) {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("Cf-Ray") != "" || header.Get("Cf-Cache-Status") != "" ||
			strings.EqualFold(header.Get("Server"), "cloudflare") {
			return true, BlockCloudflare
		}
		if strings.Contains(strings.ToLower(header.Get("Server")), "akamaighost") {
			return true, BlockAkamai
		}
	}

	// Large pages that merely mention a captcha widget are real content.
	if len(body) > 64*1024 {
		return false, BlockNone
	}
	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") ||
		strings.Contains(lower, "just a moment...") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "access denied") && strings.Contains(lower, "reference #") {
		return true, BlockAkamai
	}

	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "are you a robot") {
		return true, BlockCaptcha
	}

	return false, BlockNone
}
