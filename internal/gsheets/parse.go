package gsheets

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func parseCSV(body []byte) ([][]any, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(records))
	for i, record := range records {
		rows[i] = make([]any, len(record))
		for j, cell := range record {
			rows[i][j] = cell
		}
	}
	return rows, nil
}

type gvizResponse struct {
	Status string `json:"status"`
	Table  *struct {
		Cols []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"cols"`
		Rows []struct {
			C []*struct {
				V any `json:"v"`
			} `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

// parseGviz decodes the JavaScript-wrapped visualization API answer. Column
// labels become the header; unlabeled columns fall back to their ids.
func parseGviz(body []byte) ([][]any, error) {
	text := string(body)
	start := strings.Index(text, "setResponse(")
	end := strings.LastIndex(text, ")")
	if start < 0 || end <= start {
		return nil, errors.New("unexpected visualization response")
	}
	payload := text[start+len("setResponse(") : end]

	var resp gvizResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("decode visualization response: %w", err)
	}
	if resp.Table == nil {
		return nil, fmt.Errorf("visualization response has no table (status %q)", resp.Status)
	}

	rows := make([][]any, 0, len(resp.Table.Rows)+1)
	header := make([]any, len(resp.Table.Cols))
	for i, col := range resp.Table.Cols {
		label := col.Label
		if label == "" {
			label = col.ID
		}
		header[i] = label
	}
	rows = append(rows, header)
	for _, row := range resp.Table.Rows {
		cells := make([]any, len(row.C))
		for i, cell := range row.C {
			if cell != nil {
				cells[i] = cell.V
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// parsePublishedHTML reads the grid of a "published to the web" page. The
// first column of that grid holds row numbers and is skipped.
func parsePublishedHTML(body []byte) ([][]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	grid := doc.Find("table.waffle").First()
	if grid.Length() == 0 {
		grid = doc.Find("table").First()
	}
	if grid.Length() == 0 {
		return nil, errors.New("published page has no table")
	}

	var rows [][]any
	grid.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []any
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return nil, errors.New("published table is empty")
	}
	return rows, nil
}
