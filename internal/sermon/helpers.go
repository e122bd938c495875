package sermon

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mssola/useragent"
)

// viewerHash is a stable, non-reversible viewer identity for dedup, derived
// from IP and user agent.
func viewerHash(ip, ua string) string {
	h := sha256.Sum256([]byte(ip + "|" + ua))
	return fmt.Sprintf("%x", h[:8])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	return r.RemoteAddr
}

func categorizeReferrer(referer string) string {
	if referer == "" {
		return "Direct"
	}
	u, err := url.Parse(referer)
	if err != nil {
		return "Other"
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch {
	case strings.HasPrefix(host, "mail.") || strings.HasPrefix(host, "outlook."):
		return "Email"
	case strings.Contains(host, "slack.com"):
		return "Slack"
	case host == "twitter.com" || host == "x.com":
		return "Twitter"
	case host == "linkedin.com":
		return "LinkedIn"
	case host == "facebook.com":
		return "Facebook"
	case host == "youtube.com" || host == "youtu.be":
		return "YouTube"
	default:
		return "Other"
	}
}

func parseBrowser(ua string) string {
	if ua == "" {
		return "Other"
	}
	// mssola reports Edge's Chromium builds as Chrome; the Edg token is
	// authoritative.
	if strings.Contains(ua, "Edg/") || strings.Contains(ua, "Edge/") {
		return "Edge"
	}
	name, _ := useragent.New(ua).Browser()
	switch name {
	case "Chrome", "Safari", "Firefox":
		return name
	}
	return "Other"
}

func parseDevice(ua string) string {
	if ua == "" {
		return "Desktop"
	}
	parsed := useragent.New(ua)
	if strings.Contains(parsed.Platform(), "iPad") {
		return "Tablet"
	}
	if parsed.Mobile() {
		return "Mobile"
	}
	if strings.Contains(parsed.OSInfo().FullName, "Android") {
		return "Tablet"
	}
	return "Desktop"
}
