package server

import (
	"net/http"
	"strings"

	"sheetgenie/internal/dispatch"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/sheet"
	id "sheetgenie/internal/utils/id"

	"github.com/gin-gonic/gin"
)

const chatFailureText = "I'm sorry, I encountered an error processing your request."

// handleChat runs one turn on the request data, or on the shared table when
// the request carries none. Sessions keep history only. A failed model call is still a 200
// with success=false so the client can show it as a chat message.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.fail(c, sgerrors.New(sgerrors.CodeInvalidRequest, "message must not be empty"))
		return
	}
	if s.chat == nil {
		s.fail(c, sgerrors.New(sgerrors.CodeUpstreamProvider, "no language model is configured"))
		return
	}

	ctx := c.Request.Context()
	if req.SessionID == "" {
		req.SessionID = id.NewSessionID()
	}
	session := s.sessions.GetOrCreate(ctx, req.SessionID)

	if len(req.Data) > 0 {
		t, err := sheet.FromAny(req.Data)
		if err != nil {
			s.fail(c, err)
			return
		}
		session.SetTable(t)
	} else {
		session.SetTable(s.shell.Table())
	}

	msg, updated, err := s.chat.HandleTurn(ctx, session, req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}
	if msg.Result != nil {
		s.shell.ApplyResult(msg.Result)
	}

	resp := chatResponse{
		Success:         msg.Error == "",
		Response:        msg.Text,
		FunctionResults: []*dispatch.Result{},
		SessionID:       session.ID(),
		Error:           msg.Error,
	}
	if msg.Result != nil {
		resp.FunctionResults = append(resp.FunctionResults, msg.Result)
	} else if msg.Error != "" {
		resp.Response = chatFailureText
	}
	if updated != nil {
		resp.UpdatedData = tableValues(updated)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMessages(c *gin.Context) {
	sessionID := c.Param("session_id")
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "session not found: " + sessionID})
		return
	}
	c.JSON(http.StatusOK, messagesResponse{
		Success:   true,
		SessionID: sessionID,
		Messages:  session.Messages(),
	})
}

func (s *Server) handleResetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if !s.sessions.Delete(sessionID) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "session not found: " + sessionID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sessionID})
}
