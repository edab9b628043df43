package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/medguide/internal/storage"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now()

	records := []*storage.FetchRecord{
		{
			Domain:     "nice.org.uk",
			Kind:       "search",
			StatusCode: 200,
			Bytes:      3,
			Duration:   100 * time.Millisecond,
			Outcome:    storage.OutcomeOK,
			CreatedAt:  now,
		},
		{
			Domain:       "nice.org.uk",
			Kind:         "content",
			StatusCode:   403,
			Bytes:        4,
			Duration:     300 * time.Millisecond,
			Outcome:      storage.OutcomeBlocked,
			CreatedAt:    now.Add(1 * time.Second),
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
		},
		{
			Domain:    "cdc.gov",
			Kind:      "content",
			Outcome:   storage.OutcomeTimeout,
			CreatedAt: now.Add(2 * time.Second),
			Error:     "timeout",
		},
	}

	summary := GenerateSummary(records)

	if summary.TotalRequests != 3 {
		t.Errorf("expected 3 total requests, got %d", summary.TotalRequests)
	}
	if summary.TotalFailures != 2 {
		t.Errorf("expected 2 failures, got %d", summary.TotalFailures)
	}
	if summary.TotalDetections != 1 {
		t.Errorf("expected 1 detection, got %d", summary.TotalDetections)
	}
	if summary.DetectionsBySrc["Cloudflare"] != 1 {
		t.Errorf("expected 1 CF detection, got %d", summary.DetectionsBySrc["Cloudflare"])
	}
	if summary.StatusCodes[200] != 1 || summary.StatusCodes[403] != 1 {
		t.Errorf("unexpected status codes %v", summary.StatusCodes)
	}
	if summary.Outcomes["timeout"] != 1 || summary.Kinds["content"] != 2 {
		t.Errorf("unexpected outcome/kind counts %v %v", summary.Outcomes, summary.Kinds)
	}
	if summary.TotalBytes != 7 {
		t.Errorf("expected 7 total bytes, got %d", summary.TotalBytes)
	}
	if summary.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", summary.Duration)
	}

	if len(summary.Domains) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(summary.Domains))
	}
	nice := summary.Domains[0]
	if nice.Domain != "nice.org.uk" || nice.Requests != 2 || nice.Failures != 1 {
		t.Errorf("unexpected busiest domain %+v", nice)
	}
	if nice.AvgDuration != 200*time.Millisecond {
		t.Errorf("expected 200ms average, got %v", nice.AvgDuration)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.TotalRequests != 0 || summary.Outcomes == nil {
		t.Errorf("expected zero summary with initialised maps, got %+v", summary)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := Summary{
		TotalRequests: 5,
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `"total_requests": 5`) {
		t.Errorf("expected JSON to contain total_requests: 5, got %s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		TotalRequests: 5,
		TotalFailures: 1,
		StatusCodes: map[int]int{
			200: 4,
			500: 1,
		},
		Domains: []DomainStats{
			{Domain: "who.int", Requests: 5, Failures: 1, AvgDuration: time.Second},
		},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total Fetch:   5 requests") {
		t.Errorf("expected text to contain Total Fetch: 5")
	}
	if !strings.Contains(out, "200: 4") {
		t.Errorf("expected text to contain 200: 4")
	}
	if !strings.Contains(out, "who.int: 5 requests, 1 failed, avg 1s") {
		t.Errorf("expected per-domain line, got:\n%s", out)
	}
}
