package server

import (
	"time"

	"sheetgenie/internal/app"
	"sheetgenie/internal/chat"
	"sheetgenie/internal/dispatch"
	"sheetgenie/internal/spreadsheet"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

type tableResponse struct {
	Success  bool       `json:"success"`
	Data     [][]any    `json:"data"`
	Message  string     `json:"message,omitempty"`
	Filename string     `json:"filename,omitempty"`
	Rows     int        `json:"rows"`
	Columns  int        `json:"columns"`
	Source   app.Source `json:"source"`
	Revision int        `json:"revision"`
}

// setDataRequest replaces the shared table, and optionally a session's.
type setDataRequest struct {
	Data      [][]any `json:"data" binding:"required"`
	SessionID string  `json:"session_id,omitempty"`
}

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID string  `json:"session_id,omitempty"`
	Data      [][]any `json:"data,omitempty"`
}

type chatResponse struct {
	Success         bool               `json:"success"`
	Response        string             `json:"response"`
	UpdatedData     [][]any            `json:"updated_data,omitempty"`
	FunctionResults []*dispatch.Result `json:"function_results"`
	SessionID       string             `json:"session_id"`
	Error           string             `json:"error,omitempty"`
}

type messagesResponse struct {
	Success   bool           `json:"success"`
	SessionID string         `json:"session_id"`
	Messages  []chat.Message `json:"messages"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type googleSheetResponse struct {
	Success bool    `json:"success"`
	Data    [][]any `json:"data"`
	SheetID string  `json:"sheet_id"`
	Method  string  `json:"method"`
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
	Message string  `json:"message"`
}

type editsRequest struct {
	Edits []app.Edit `json:"edits"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type insightsResponse struct {
	Success  bool                  `json:"success"`
	Insights *spreadsheet.Insights `json:"insights"`
	Report   string                `json:"report"`
}

type diffResponse struct {
	Success      bool   `json:"success"`
	Diff         string `json:"diff"`
	AddedLines   int    `json:"added_lines"`
	DeletedLines int    `json:"deleted_lines"`
	Summary      string `json:"summary"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// Grid channel message types.
const (
	wsSnapshot = "snapshot"
	wsEdits    = "edits"
	wsError    = "error"
	wsPing     = "ping"
	wsPong     = "pong"
)

// wsMessage is one frame on the grid channel. Clients send edits; the server
// pushes snapshots after every change.
type wsMessage struct {
	Type      string     `json:"type"`
	Grid      any        `json:"grid,omitempty"`
	Edits     []app.Edit `json:"edits,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
