package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Finding is a single vulnerability/risk entry produced by the scan backend.
// Only the fields the gateway reasons about are typed; everything else stays in Raw.
type Finding struct {
	ID          string `json:"id,omitempty" jsonschema:"description=Finding identifier"`
	Title       string `json:"title,omitempty" jsonschema:"description=Short finding title"`
	Severity    string `json:"severity" jsonschema:"enum=critical,enum=high,enum=medium,enum=low,enum=suggestion,description=Severity classification"`
	Description string `json:"description,omitempty" jsonschema:"description=Finding details"`
	File        string `json:"file,omitempty" jsonschema:"description=File the finding refers to"`
	Line        int    `json:"line,omitempty" jsonschema:"description=1-based line number"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts any JSON value. Non-object entries decode to a finding
// without severity instead of failing the whole report.
func (f *Finding) UnmarshalJSON(data []byte) error {
	type plain Finding
	var p plain
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*f = Finding{Raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	if err := json.Unmarshal(trimmed, &p); err != nil {
		// Typed fields disagree with the backend (e.g. line as string); keep severity only.
		var loose struct {
			Severity any `json:"severity"`
		}
		if err2 := json.Unmarshal(trimmed, &loose); err2 != nil {
			return err
		}
		p = plain{}
		if s, ok := loose.Severity.(string); ok {
			p.Severity = s
		}
	}
	*f = Finding(p)
	f.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the original payload when one was decoded.
func (f Finding) MarshalJSON() ([]byte, error) {
	if len(f.Raw) > 0 {
		return f.Raw, nil
	}
	type plain Finding
	return json.Marshal(plain(f))
}

// ScanData is the nested shape some backend responses wrap findings in.
type ScanData struct {
	ContextualFindings []Finding `json:"contextualFindings,omitempty"`
	StaticFindings     []Finding `json:"staticFindings,omitempty"`
	Risks              []Finding `json:"risks,omitempty"`
	ConstraintsCount   int       `json:"constraints_count,omitempty"`
}

// ScanReport is a backend scan result. The gateway never persists it; it is
// decoded only to score and sort scans.
type ScanReport struct {
	ScanID        int64  `json:"scan_id,omitempty" jsonschema:"description=Backend scan identifier"`
	Success       *bool  `json:"success,omitempty" jsonschema:"description=False when the scan failed"`
	Message       string `json:"message,omitempty"`
	FilePath      string `json:"file_path,omitempty" jsonschema:"description=Original uploaded file name"`
	Timestamp     string `json:"timestamp,omitempty" jsonschema:"description=ISO-8601 time the scan was stored"`
	ScanName      string `json:"scanName,omitempty"`
	ScanCreated   string `json:"scanCreated,omitempty"`
	ScanCompleted string `json:"scanCompleted,omitempty"`

	ContextualFindings []Finding `json:"contextualFindings,omitempty"`
	StaticFindings     []Finding `json:"staticFindings,omitempty"`
	Risks              []Finding `json:"risks,omitempty"`
	RisksCount         int       `json:"risks_count,omitempty"`
	TotalRisks         int       `json:"totalRisks,omitempty"`

	ScanData *ScanData `json:"scanData,omitempty"`

	// Raw is the backend's bytes for this report, set by DecodeHistory.
	Raw json.RawMessage `json:"-"`
}

// Succeeded reports whether the backend marked the scan as successful.
// A missing flag counts as success.
func (r *ScanReport) Succeeded() bool {
	return r.Success == nil || *r.Success
}

// DisplayName is the label shown in scan lists.
func (r *ScanReport) DisplayName() string {
	switch {
	case r.ScanName != "":
		return r.ScanName
	case r.FilePath != "":
		return r.FilePath
	default:
		return "Security Scan"
	}
}

// CompletedAt returns scanCompleted, falling back to timestamp.
func (r *ScanReport) CompletedAt() time.Time {
	if t, ok := ParseTime(r.ScanCompleted); ok {
		return t
	}
	t, _ := ParseTime(r.Timestamp)
	return t
}

// CreatedAt returns scanCreated, falling back to timestamp.
func (r *ScanReport) CreatedAt() time.Time {
	if t, ok := ParseTime(r.ScanCreated); ok {
		return t
	}
	t, _ := ParseTime(r.Timestamp)
	return t
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTime parses the timestamp formats the backend emits (Python isoformat
// without zone, RFC 3339, HTTP dates).
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EntryError reports a history entry that could not be decoded.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("history entry %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// DecodeHistory decodes a history array entry by entry. Entries that fail to
// decode are left out and reported in skipped; err is set only when data is
// not a JSON array.
func DecodeHistory(data []byte) (reports []ScanReport, skipped []*EntryError, err error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("decoding scan history: %w", err)
	}

	reports = make([]ScanReport, 0, len(raws))
	for i, raw := range raws {
		var report ScanReport
		if err := json.Unmarshal(raw, &report); err != nil {
			skipped = append(skipped, &EntryError{Index: i, Err: err})
			continue
		}
		report.Raw = raw
		reports = append(reports, report)
	}
	return reports, skipped, nil
}

// DecodeReports decodes either a single scan report or a history array.
// list is true when the payload was an array.
func DecodeReports(data []byte) (reports []ScanReport, list bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty payload")
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, true, fmt.Errorf("decoding scan history: %w", err)
		}
		return reports, true, nil
	}
	var report ScanReport
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, false, fmt.Errorf("decoding scan report: %w", err)
	}
	return []ScanReport{report}, false, nil
}
