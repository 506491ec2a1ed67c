package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
)

const wsWriteWait = 10 * time.Second

func allowWSOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	return strings.EqualFold(originURL.Host, r.Host)
}

// Worker handles GET /v1/ws. Each connection gets its own worker; text
// frames carry protocol requests and responses as JSON.
func (s *Server) Worker(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.limits.MaxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()

	in := make(chan protocol.Request, s.limits.InboxSize)
	out := make(chan protocol.Response, s.limits.InboxSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.newWorker().Run(ctx, in, out); err != nil && ctx.Err() == nil {
			s.logger.Error("worker stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		s.writeResponses(ctx, conn, out)
		// Unblocks the reader when the socket can no longer be written.
		cancel()
		_ = conn.Close()
	}()

	s.readRequests(ctx, conn, in, out)
	cancel()
	wg.Wait()
}

// readRequests forwards decoded frames to the worker until the socket
// closes. Undecodable frames are answered with an error for id 0.
func (s *Server) readRequests(
	ctx context.Context,
	conn *websocket.Conn,
	in chan<- protocol.Request,
	out chan<- protocol.Response,
) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) && ctx.Err() == nil {
				s.logger.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			reply := protocol.Failed(0, fmt.Errorf("%w: invalid json payload", domain.ErrInvalidRequest))
			select {
			case out <- reply:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case in <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writeResponses(ctx context.Context, conn *websocket.Conn, out <-chan protocol.Response) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(resp); err != nil {
				s.logger.Warn("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
