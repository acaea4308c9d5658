package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sheetgenie/internal/app"
	"sheetgenie/internal/chat"
	"sheetgenie/internal/config"
	"sheetgenie/internal/dispatch"
	"sheetgenie/internal/llm"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/server/middleware"
	"sheetgenie/internal/workbook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, steps ...llm.Step) (*Server, *app.Shell) {
	t.Helper()
	shell := app.NewShell()
	deps := Deps{Shell: shell, Logger: logging.Nop(), Version: "test"}
	if len(steps) > 0 {
		deps.Chat = chat.NewHandler(dispatch.New(llm.NewScriptedClient(steps...)))
	}
	return New(config.Default().Server, deps), shell
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SheetGenie API is running!", decode(t, w)["message"])

	w = doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestLogIDHeader(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(middleware.HeaderLogID, "log-abc")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "log-abc", w.Header().Get(middleware.HeaderLogID))

	w = doJSON(t, s, http.MethodGet, "/api/health", nil)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderLogID))
}

func TestSampleData(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/sample-data", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Sample data retrieved successfully", body["message"])
	data := body["data"].([]any)
	require.Len(t, data, 6)
	assert.Equal(t, "Product", data[0].([]any)[0])
	assert.EqualValues(t, 5, body["rows"])
	assert.EqualValues(t, 7, body["columns"])
}

func upload(t *testing.T, s *Server, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-excel", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	s, shell := newTestServer(t)

	w := upload(t, s, "sales.csv", []byte("Region,Revenue\nNorth,10\nSouth,20\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Excel file 'sales.csv' uploaded successfully", body["message"])
	assert.Equal(t, "sales.csv", body["filename"])
	assert.EqualValues(t, 2, body["rows"])
	assert.EqualValues(t, 2, body["columns"])
	assert.Equal(t, []string{"Region", "Revenue"}, shell.Table().Header())

	w = upload(t, s, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "FileFormatError", body["code"])
	assert.Equal(t, []string{"Region", "Revenue"}, shell.Table().Header(), "failed upload keeps the table")

	w = upload(t, s, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetAndGetData(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/set-spreadsheet-data", map[string]any{
		"data": [][]any{{"Name", "Score"}, {"a", 1}, {"b", 2}, {"c", 3}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Spreadsheet data set successfully", body["message"])
	assert.EqualValues(t, 3, body["rows"])

	w = doJSON(t, s, http.MethodGet, "/api/spreadsheet-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Name", body["data"].([]any)[0].([]any)[0])
	assert.Equal(t, "api", body["source"].(map[string]any)["kind"])

	w = doJSON(t, s, http.MethodPost, "/api/set-spreadsheet-data", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireJSON(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/set-spreadsheet-data", strings.NewReader("data=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/export-excel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, workbook.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ExportFilename)

	table, err := workbook.Read("export.xlsx", w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 5, table.Rows())
}

func TestChat(t *testing.T) {
	s, shell := newTestServer(t,
		llm.CallStep("add_column", map[string]any{"name": "Bonus", "expression": "10% higher than Total"}),
		llm.ErrorStep(errors.New("connection refused")),
	)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{
		"message":    "add a bonus column",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "s1", body["session_id"])
	require.Len(t, body["function_results"], 1)
	header := body["updated_data"].([]any)[0].([]any)
	assert.Equal(t, "Bonus", header[len(header)-1])
	assert.Equal(t, 8, shell.Table().Columns(), "chat results reach the shared table")

	w = doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{
		"message":    "and again",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, chatFailureText, body["response"])
	assert.Contains(t, body["error"], "connection refused")

	w = doJSON(t, s, http.MethodGet, "/api/chat/s1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"], 4)

	w = doJSON(t, s, http.MethodDelete, "/api/chat/s1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/chat/s1/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, s, http.MethodDelete, "/api/chat/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatFollowsSharedTableBetweenTurns(t *testing.T) {
	s, shell := newTestServer(t,
		llm.TextStep("The sample holds quarterly sales."),
		llm.CallStep("add_column", map[string]any{"name": "Doubled", "source": "Amount", "transform": "multiply", "operand": 2}),
	)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "describe", "session_id": "s1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/api/set-spreadsheet-data", map[string]any{
		"data": [][]any{{"Item", "Amount"}, {"x", 1}, {"y", 4}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "double the amount", "session_id": "s1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, true, body["success"], w.Body.String())
	assert.Equal(t, []string{"Item", "Amount", "Doubled"}, shell.Table().Header())
	assert.Equal(t, 2, shell.Table().Rows())
}

func TestChatValidation(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UpstreamProviderError", decode(t, w)["code"])
}

func TestGoogleSheetsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/google-sheets/validate", map[string]any{
		"url": "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", body["sheet_id"])

	w = doJSON(t, s, http.MethodPost, "/api/google-sheets/validate", map[string]any{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["valid"])

	w = doJSON(t, s, http.MethodPost, "/api/google-sheets/load", map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No fetcher is wired into the test shell.
	w = doJSON(t, s, http.MethodPost, "/api/google-sheets/load", map[string]any{
		"url": "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/google-sheets/samples", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["samples"], 2)

	w = doJSON(t, s, http.MethodGet, "/api/google-sheets/instructions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "How to Share Your Google Sheet", decode(t, w)["title"])
}

func TestGridEdits(t *testing.T) {
	s, shell := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/grid/edits", map[string]any{
		"edits": []map[string]any{{"row": 1, "col": 1, "value": 99}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 99.0, shell.Table().Cell(0, 1).Any())
	assert.EqualValues(t, 2, decode(t, w)["revision"])

	w = doJSON(t, s, http.MethodPost, "/api/grid/edits", map[string]any{
		"edits": []map[string]any{{"row": 1, "col": 40, "value": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/diff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["added_lines"])
	assert.EqualValues(t, 1, body["deleted_lines"])
}

func TestShellEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPut, "/api/shell/chat", map[string]any{"visible": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["chat_visible"])

	w = doJSON(t, s, http.MethodPut, "/api/shell/chat", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/shell", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["chat_visible"])

	w = doJSON(t, s, http.MethodPost, "/api/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode(t, w)["rows"])

	w = doJSON(t, s, http.MethodGet, "/api/insights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["report"])
}

func TestChartRender(t *testing.T) {
	s, _ := newTestServer(t)
	data := []map[string]any{{"Product": "A", "Total": 10}, {"Product": "B", "Total": 20}}

	w := doJSON(t, s, http.MethodPost, "/api/chart/render", map[string]any{
		"type": "radar", "x_key": "Product", "y_keys": []string{"Total"}, "data": data,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	widget := decode(t, w)["chart"].(map[string]any)
	assert.Equal(t, "bar", widget["type"])

	w = doJSON(t, s, http.MethodPost, "/api/chart/render", map[string]any{
		"type": "line", "x_key": "Month", "y_keys": []string{"Total"}, "data": data,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "AxisKeyNotFound", decode(t, w)["code"])
}

func TestMetricsDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
