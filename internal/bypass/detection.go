// Package bypass recognises bot-wall and challenge pages so the fetcher can
// treat them as failed fetches instead of guideline content. It only detects;
// it never tries to solve or evade a challenge.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP response the detectors inspect.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Detector examines a response to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(res Response) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
// They apply to every response.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// SearchDetectors returns detectors for search backend pages only. Their
// signatures are plain markup that a guideline page could legitimately carry.
func SearchDetectors() []Detector {
	return []Detector{detectDuckDuckGoAnomaly}
}

// Analyze runs the response through detectors in order and returns the first
// source that triggers.
func Analyze(res Response, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(res); detected {
			return true, source
		}
	}
	return false, ""
}

func header(res Response, key string) string {
	if res.Headers == nil {
		return ""
	}
	return res.Headers.Get(key)
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(res.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(res.Body, []byte("cloudflare-nginx")) ||
		bytes.Contains(res.Body, []byte("cf-turnstile")) ||
		bytes.Contains(res.Body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "akamai") {
		return true, "Akamai"
	}
	// Akamai's generic block page carries a "Reference #" identifier.
	if bytes.Contains(res.Body, []byte("Reference #")) && bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res, "Server")), "datadome") ||
		header(res, "X-DataDome") != "" || header(res, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(res.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(res.Body, []byte("datadome")) {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if header(res, "X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bytes.Contains(res.Body, []byte("client.perimeterx.net")) ||
		bytes.Contains(res.Body, []byte("px-captcha")) ||
		bytes.Contains(res.Body, []byte("_pxBlock")) {
		return true, "PerimeterX"
	}
	return false, ""
}

// detectDuckDuckGoAnomaly catches the HTML search endpoint's "anomaly" page,
// which DuckDuckGo serves with a 2xx status in place of results when it
// suspects automated traffic.
func detectDuckDuckGoAnomaly(res Response) (bool, string) {
	if bytes.Contains(res.Body, []byte("anomaly-modal")) ||
		bytes.Contains(res.Body, []byte("bots use DuckDuckGo too")) {
		return true, "DuckDuckGo"
	}
	return false, ""
}
