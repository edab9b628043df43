// Package report summarises the fetch audit log.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/medguide/internal/storage"
)

// DomainStats aggregates the fetches made against one guideline source.
type DomainStats struct {
	Domain      string        `json:"domain"`
	Requests    int           `json:"requests"`
	Failures    int           `json:"failures"`
	Bytes       int64         `json:"bytes"`
	AvgDuration time.Duration `json:"avg_duration"`

	totalDuration time.Duration
}

// Summary contains aggregated metrics about recorded fetches.
type Summary struct {
	TotalRequests   int            `json:"total_requests"`
	TotalFailures   int            `json:"total_failures"`
	TotalDetections int            `json:"total_detections"`
	Outcomes        map[string]int `json:"outcomes"`
	Kinds           map[string]int `json:"kinds"`
	StatusCodes     map[int]int    `json:"status_codes"`
	DetectionsBySrc map[string]int `json:"detections_by_source"`
	Domains         []DomainStats  `json:"domains"`
	TotalBytes      int64          `json:"total_bytes"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Duration        time.Duration  `json:"duration"`
}

// GenerateSummary aggregates records. Domains are sorted by request count,
// busiest first.
func GenerateSummary(records []*storage.FetchRecord) Summary {
	s := Summary{
		Outcomes:        make(map[string]int),
		Kinds:           make(map[string]int),
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	byDomain := make(map[string]*DomainStats)
	for _, r := range records {
		s.TotalRequests++
		s.Outcomes[string(r.Outcome)]++
		s.Kinds[r.Kind]++
		if r.Failed() {
			s.TotalFailures++
		}
		if r.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[r.DetectionSrc]++
		}
		if r.StatusCode > 0 {
			s.StatusCodes[r.StatusCode]++
		}
		s.TotalBytes += int64(r.Bytes)

		d, ok := byDomain[r.Domain]
		if !ok {
			d = &DomainStats{Domain: r.Domain}
			byDomain[r.Domain] = d
		}
		d.Requests++
		if r.Failed() {
			d.Failures++
		}
		d.Bytes += int64(r.Bytes)
		d.totalDuration += r.Duration

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	for _, d := range byDomain {
		d.AvgDuration = d.totalDuration / time.Duration(d.Requests)
		s.Domains = append(s.Domains, *d)
	}
	sort.Slice(s.Domains, func(i, j int) bool {
		if s.Domains[i].Requests != s.Domains[j].Requests {
			return s.Domains[i].Requests > s.Domains[j].Requests
		}
		return s.Domains[i].Domain < s.Domains[j].Domain
	})

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `medguide Fetch Audit
--------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Total Fetch:   {{.TotalRequests}} requests
Total Bytes:   {{.TotalBytes}} bytes
Failures:      {{.TotalFailures}}

Outcomes:
{{- range $outcome, $count := .Outcomes}}
  {{$outcome}}: {{$count}}
{{- else}}
  None
{{- end}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Domains:
{{- range .Domains}}
  {{.Domain}}: {{.Requests}} requests, {{.Failures}} failed, avg {{.AvgDuration}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

var textReport = template.Must(template.New("textReport").Parse(textTmpl))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render text summary: %w", err)
	}
	return nil
}
