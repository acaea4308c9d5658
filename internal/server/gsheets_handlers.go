package server

import (
	"fmt"
	"net/http"

	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/gsheets"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGoogleLoad(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	if v := gsheets.Validate(req.URL); !v.Valid {
		s.fail(c, sgerrors.New(sgerrors.CodeInvalidRequest, "%s", v.Error))
		return
	}

	fetched, snap, err := s.shell.ImportGoogleSheet(c.Request.Context(), req.URL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, googleSheetResponse{
		Success: true,
		Data:    snap.Data,
		SheetID: fetched.Ref.SheetID,
		Method:  fetched.Method,
		Rows:    snap.Rows,
		Columns: snap.Columns,
		Message: fmt.Sprintf("Successfully loaded %d rows from Google Sheets using %s", snap.Rows, fetched.Method),
	})
}

// handleGoogleValidate always answers 200; the verdict is in the body.
func (s *Server) handleGoogleValidate(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	c.JSON(http.StatusOK, gsheets.Validate(req.URL))
}

func (s *Server) handleGoogleSamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"samples": gsheets.SampleURLs()})
}

func (s *Server) handleGoogleInstructions(c *gin.Context) {
	c.JSON(http.StatusOK, gsheets.Instructions())
}
