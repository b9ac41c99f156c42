package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lushly-dev/afd-sub004/internal/ipc"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// serveHTTP runs the daemon's HTTP surface: request/response RPC, an
// SSE event stream, and the websocket channel endpoint handoffs point
// at. It shuts down when ctx is cancelled.
func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", s.handleRPC)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /channels", s.handleChannel)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","commands":%d}`, len(s.reg.Names()))
	})

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.resetIdle()
			mux.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Warn("http server stopped", zap.Error(err))
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req ipc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, req.ID, result.CodeTransportMalformed,
			"decode request: "+err.Error())
		return
	}
	res := s.dispatch(r.Context(), req.Method, req.Params, "http")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ipc.Response{ID: req.ID, Result: &res})
}

func writeRPCError(w http.ResponseWriter, id uint64, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ipc.Response{
		ID:    id,
		Error: &ipc.TransportError{Code: code, Message: message},
	})
}

// handleEvents streams invocation events as server-sent events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	evs, cancel := s.events.subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-evs:
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, data)
			flusher.Flush()
			s.resetIdle()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Credentials are single-use and short-lived; the origin check adds
	// nothing for a localhost daemon.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleChannel is the handoff target: a websocket that streams chat
// messages for the room named in the redeemed credential.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	credential := r.URL.Query().Get("credential")
	grant, err := s.broker.Redeem(credential)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	room, ok := strings.CutPrefix(grant.Topic, "chat:")
	if !ok {
		http.Error(w, "credential is not for a chat channel", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.chatHub.Subscribe(room)
	defer sub.Cancel()

	s.log.Info("channel opened",
		zap.String("room", room),
		zap.String("source", grant.Source))

	// Reader goroutine notices the peer hanging up.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.Messages:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			s.resetIdle()
		}
	}
}
