package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/funnel/logger"
	"go.uber.org/zap"
)

const WRITE_WAIT = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleExecutionEvents streams step events over a websocket. The optional
// flowId query parameter narrows the stream to one flow.
func (s *Server) HandleExecutionEvents(w http.ResponseWriter, r *http.Request) {
	flowId := r.URL.Query().Get("flowId")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.events.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if len(flowId) != 0 && event.FlowId != flowId {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("websocket subscriber gone", zap.Error(err))
				return
			}
		}
	}
}
