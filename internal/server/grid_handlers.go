package server

import (
	"net/http"
	"sync"
	"time"

	"sheetgenie/internal/app"
	id "sheetgenie/internal/utils/id"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 16
)

func gridPayload(snap app.Snapshot) gin.H {
	return gin.H{
		"success":  true,
		"grid":     snap.Grid(),
		"data":     snap.Data,
		"revision": snap.Revision,
		"source":   snap.Source,
	}
}

func (s *Server) handleGrid(c *gin.Context) {
	c.JSON(http.StatusOK, gridPayload(s.shell.Snapshot()))
}

func (s *Server) handleGridEdits(c *gin.Context) {
	var req editsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	snap, err := s.shell.ApplyEdits(req.Edits)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gridPayload(snap))
}

// wsClient is one grid socket. The writer goroutine owns conn writes.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan wsMessage
	done chan struct{}

	closeOnce sync.Once
}

func (w *wsClient) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.conn.Close()
	})
}

// enqueue drops the frame once the client is closing.
func (w *wsClient) enqueue(msg wsMessage) {
	msg.Timestamp = time.Now()
	select {
	case w.send <- msg:
	case <-w.done:
	}
}

func snapshotFrame(snap app.Snapshot) wsMessage {
	return wsMessage{Type: wsSnapshot, Grid: gridPayload(snap)}
}

// handleGridSocket streams shell snapshots to the client and applies the
// edits it sends back.
func (s *Server) handleGridSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Grid socket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   id.NewClientID(),
		conn: conn,
		send: make(chan wsMessage, wsSendBuffer),
		done: make(chan struct{}),
	}
	s.addClient(client)
	defer s.removeClient(client)

	updates, cancel := s.shell.Subscribe(wsSendBuffer)
	defer cancel()

	s.wg.Add(1)
	go s.writeLoop(client, updates)

	client.enqueue(snapshotFrame(s.shell.Snapshot()))
	s.readLoop(client)
}

func (s *Server) readLoop(client *wsClient) {
	conn := client.conn
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Grid socket %s closed: %v", client.id, err)
			}
			return
		}
		switch msg.Type {
		case wsEdits:
			// The resulting snapshot reaches this client through its subscription.
			if _, err := s.shell.ApplyEdits(msg.Edits); err != nil {
				client.enqueue(wsMessage{Type: wsError, Error: err.Error()})
			}
		case wsPing:
			client.enqueue(wsMessage{Type: wsPong})
		default:
			client.enqueue(wsMessage{Type: wsError, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (s *Server) writeLoop(client *wsClient, updates <-chan app.Snapshot) {
	defer s.wg.Done()
	defer client.close()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(msg wsMessage) bool {
		_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return client.conn.WriteJSON(msg) == nil
	}

	for {
		select {
		case <-client.done:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			frame := snapshotFrame(snap)
			frame.Timestamp = time.Now()
			if !write(frame) {
				return
			}
		case msg := <-client.send:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) addClient(client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.id] = client
	s.logger.Debug("Grid socket %s connected (%d open)", client.id, len(s.clients))
}

func (s *Server) removeClient(client *wsClient) {
	client.close()
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, client.id)
}

// closeAllClients closes every grid socket. http.Server.Shutdown does not
// track hijacked connections.
func (s *Server) closeAllClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for key, client := range s.clients {
		client.close()
		delete(s.clients, key)
	}
}
