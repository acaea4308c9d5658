package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"sheetgenie/internal/app"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"
	"sheetgenie/internal/workbook"

	"github.com/gin-gonic/gin"
)

// ExportFilename is the attachment name of exported workbooks.
const ExportFilename = "sheetgenie_export.xlsx"

func tableValues(t *sheet.Table) [][]any {
	rows := t.Values()
	out := make([][]any, len(rows))
	for r, row := range rows {
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = v.Any()
		}
		out[r] = cells
	}
	return out
}

func snapshotResponse(snap app.Snapshot, message string) tableResponse {
	return tableResponse{
		Success:  true,
		Data:     snap.Data,
		Message:  message,
		Rows:     snap.Rows,
		Columns:  snap.Columns,
		Source:   snap.Source,
		Revision: snap.Revision,
	}
}

func (s *Server) handleSampleData(c *gin.Context) {
	t := sheet.Sample()
	c.JSON(http.StatusOK, tableResponse{
		Success: true,
		Data:    tableValues(t),
		Message: "Sample data retrieved successfully",
		Rows:    t.Rows(),
		Columns: t.Columns(),
		Source:  app.Source{Kind: app.SourceSample},
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, sgerrors.New(sgerrors.CodeFileFormat, "file exceeds the %d MB upload limit", s.cfg.MaxUploadMB))
			return
		}
		s.fail(c, sgerrors.Wrap(sgerrors.CodeInvalidRequest, err, "No file provided; send the spreadsheet as the multipart field \"file\""))
		return
	}
	if header.Size > limit {
		s.fail(c, sgerrors.New(sgerrors.CodeFileFormat, "file exceeds the %d MB upload limit", s.cfg.MaxUploadMB))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(c, sgerrors.Wrap(sgerrors.CodeFileFormat, err, "could not read upload: %v", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(c, sgerrors.Wrap(sgerrors.CodeFileFormat, err, "could not read upload: %v", err))
		return
	}

	snap, err := s.shell.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := snapshotResponse(snap, fmt.Sprintf("Excel file '%s' uploaded successfully", header.Filename))
	resp.Filename = header.Filename
	c.JSON(http.StatusOK, resp)
}

// handleSetData replaces the shared table. With a session id the session's
// table is replaced too. Nothing here outlives the process.
func (s *Server) handleSetData(c *gin.Context) {
	var req setDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	t, err := sheet.FromAny(req.Data)
	if err != nil {
		s.fail(c, err)
		return
	}
	snap := s.shell.Load(t, app.Source{Kind: app.SourceAPI})
	if req.SessionID != "" {
		s.sessions.GetOrCreate(c.Request.Context(), req.SessionID).SetTable(t)
	}
	c.JSON(http.StatusOK, snapshotResponse(snap, "Spreadsheet data set successfully"))
}

func (s *Server) handleGetData(c *gin.Context) {
	c.JSON(http.StatusOK, snapshotResponse(s.shell.Snapshot(), ""))
}

func (s *Server) handleNew(c *gin.Context) {
	c.JSON(http.StatusOK, snapshotResponse(s.shell.New(), "New spreadsheet created from sample data"))
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.shell.Export()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+ExportFilename)
	c.Data(http.StatusOK, workbook.ContentType, data)
}

func (s *Server) handleInsights(c *gin.Context) {
	t := s.shell.Table()
	c.JSON(http.StatusOK, insightsResponse{
		Success:  true,
		Insights: spreadsheet.Analyze(t),
		Report:   spreadsheet.Report(t),
	})
}

func (s *Server) handleDiff(c *gin.Context) {
	d := s.shell.Diff()
	c.JSON(http.StatusOK, diffResponse{
		Success:      true,
		Diff:         d.UnifiedDiff,
		AddedLines:   d.AddedLines,
		DeletedLines: d.DeletedLines,
		Summary:      d.FormatSummary(),
	})
}

func (s *Server) handleShell(c *gin.Context) {
	snap := s.shell.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"source":       snap.Source,
		"revision":     snap.Revision,
		"rows":         snap.Rows,
		"columns":      snap.Columns,
		"chat_visible": snap.ChatVisible,
		"formatting":   snap.Formatting,
	})
}

func (s *Server) handleChatVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	if req.Visible == nil {
		s.fail(c, sgerrors.New(sgerrors.CodeInvalidRequest, "visible is required"))
		return
	}
	snap := s.shell.SetChatVisible(*req.Visible)
	c.JSON(http.StatusOK, gin.H{"success": true, "chat_visible": snap.ChatVisible})
}
