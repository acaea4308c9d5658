package gsheets

import (
	"net/url"
	"regexp"
	"strings"

	sgerrors "sheetgenie/internal/errors"
)

// Ref locates one tab of a Google spreadsheet.
type Ref struct {
	SheetID string `json:"sheet_id"`
	// GID is the numeric tab id; empty means the first tab.
	GID string `json:"gid,omitempty"`
	// SheetName comes from a range parameter such as range=Sales!A1:D9.
	SheetName string `json:"sheet_name,omitempty"`
}

var (
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`),
		regexp.MustCompile(`[?&]id=([a-zA-Z0-9-_]+)`),
		regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)/`),
	}
	bareID     = regexp.MustCompile(`^[a-zA-Z0-9-_]{40,}$`)
	gidPattern = regexp.MustCompile(`[#?&]gid=(\d+)`)
	rangeParam = regexp.MustCompile(`[?&]range=([^&#]+)`)
)

// ParseURL extracts the sheet id, tab and range sheet name from a sharing
// link, an export link or a bare spreadsheet id.
func ParseURL(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, sgerrors.New(sgerrors.CodeInvalidRequest, "URL is required")
	}

	var ref Ref
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			ref.SheetID = m[1]
			break
		}
	}
	if ref.SheetID == "" {
		if !bareID.MatchString(raw) {
			return Ref{}, sgerrors.New(sgerrors.CodeInvalidRequest,
				"Could not extract sheet ID from URL. Please ensure the sheet is publicly accessible.")
		}
		return Ref{SheetID: raw}, nil
	}

	if m := gidPattern.FindStringSubmatch(raw); m != nil {
		ref.GID = m[1]
	}
	if m := rangeParam.FindStringSubmatch(raw); m != nil {
		value, err := url.QueryUnescape(m[1])
		if err != nil {
			value = m[1]
		}
		if name, _, found := strings.Cut(value, "!"); found {
			ref.SheetName = strings.Trim(name, "'")
		}
	}
	return ref, nil
}

func (r Ref) key() string {
	return r.SheetID + "|" + r.GID + "|" + r.SheetName
}

// Validation is the answer to a URL check.
type Validation struct {
	Valid   bool   `json:"valid"`
	SheetID string `json:"sheet_id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Validate checks that raw looks like a Google Sheets link without fetching it.
func Validate(raw string) Validation {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Validation{Error: "URL is required"}
	}
	if !strings.Contains(raw, "docs.google.com/spreadsheets") && !strings.Contains(raw, "drive.google.com") {
		return Validation{Error: "Please provide a valid Google Sheets URL"}
	}
	ref, err := ParseURL(raw)
	if err != nil {
		return Validation{Error: "Could not extract sheet ID from URL"}
	}
	return Validation{Valid: true, SheetID: ref.SheetID, Message: "Valid Google Sheets URL"}
}

// SampleURL is a public sheet offered as a demo.
type SampleURL struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SampleURLs lists public demo sheets.
func SampleURLs() []SampleURL {
	return []SampleURL{
		{
			Name:        "Sample Sales Data",
			URL:         "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
			Description: "Public Google Sheets with sales data for testing",
		},
		{
			Name:        "Sample Financial Data",
			URL:         "https://docs.google.com/spreadsheets/d/1mHIWnDvW9cALRMq9OdNfRwjAthCUq8OOWBdiBP5OQPM/edit",
			Description: "Financial analysis data sample",
		},
	}
}

// SharingInstructions explains how to make a sheet readable by link.
type SharingInstructions struct {
	Title           string   `json:"title"`
	Steps           []string `json:"steps"`
	Tips            []string `json:"tips"`
	Troubleshooting []string `json:"troubleshooting"`
}

func Instructions() SharingInstructions {
	return SharingInstructions{
		Title: "How to Share Your Google Sheet",
		Steps: []string{
			"1. Open your Google Sheet",
			"2. Click the 'Share' button (top right)",
			"3. Click 'Change to anyone with the link'",
			"4. Set permission to 'Viewer'",
			"5. Click 'Copy link'",
			"6. Paste the link in SheetGenie",
		},
		Tips: []string{
			"• The sheet must be publicly accessible for SheetGenie to read it",
			"• 'Viewer' permission is sufficient - no editing access needed",
			"• Both full URLs and sheet IDs work",
			"• Specific sheet tabs can be accessed using the tab URL",
		},
		Troubleshooting: []string{
			"If access fails, check sharing settings",
			"Ensure the link works in an incognito browser",
			"Try copying the link again from Google Sheets",
		},
	}
}
