package dispatch

import (
	"sheetgenie/internal/chart"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"
)

// Result is the outcome of one dispatched turn. At most one operation runs
// per turn; a plain-text reply is an OpDirectAnswer with no payload.
type Result struct {
	Operation   Operation      `json:"operation"`
	Tool        string         `json:"tool,omitempty"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Success     bool           `json:"success"`
	Reason      sgerrors.Code  `json:"reason,omitempty"`
	Explanation string         `json:"explanation"`
	Message     string         `json:"message,omitempty"`
	Formula     string         `json:"formula,omitempty"`
	Value       *float64       `json:"value,omitempty"`

	// Table is the updated table; nil unless the operation changed it.
	Table *sheet.Table `json:"-"`

	Chart      *chart.Spec              `json:"chart,omitempty"`
	Widget     *chart.Widget            `json:"chart_widget,omitempty"`
	Pivot      *spreadsheet.PivotResult `json:"pivot,omitempty"`
	Insights   *spreadsheet.Insights    `json:"insights,omitempty"`
	Formatting *spreadsheet.Formatting  `json:"formatting,omitempty"`
	Details    map[string]any           `json:"details,omitempty"`
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	r.Reason = sgerrors.CodeOf(err)
	r.Explanation = err.Error()
	r.Table = nil
	return r
}

func (r *Result) detail(key string, value any) {
	if r.Details == nil {
		r.Details = map[string]any{}
	}
	r.Details[key] = value
}

func float(v float64) *float64 {
	return &v
}
