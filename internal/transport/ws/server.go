package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/protocol"
	"cavecraft.ai/internal/sim/service"
	"cavecraft.ai/internal/sim/tuning"
)

const sessionQueue = 8

type Server struct {
	svc *service.Service
	log logrus.FieldLogger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]chan []byte
}

func NewServer(svc *service.Service, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		svc: svc,
		log: logger.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]chan []byte{},
	}
}

// Sessions is the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, hello := s.handshake(conn)
		if sessionID == "" {
			return
		}
		lg := s.log.WithFields(logrus.Fields{"session": sessionID, "client": hello.ClientName})
		lg.Info("session opened")

		out := make(chan []byte, sessionQueue)
		s.mu.Lock()
		s.sessions[sessionID] = out
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sessionID)
			s.mu.Unlock()
			lg.Info("session closed")
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handle(ctx, sessionID, out, msg, lg)
		}
		<-done
	}
}

func (s *Server) handle(ctx context.Context, sessionID string, out chan<- []byte, msg []byte, lg logrus.FieldLogger) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		send(ctx, out, protocol.NewError("", protocol.ErrProtoBadRequest, "malformed json"))
		return
	}
	if base.Type != protocol.TypeRegenerate {
		send(ctx, out, protocol.NewError("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
		return
	}
	var req protocol.RegenerateMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		send(ctx, out, protocol.NewError("", protocol.ErrProtoBadRequest, err.Error()))
		return
	}
	if err := protocol.Validate(msg); err != nil {
		send(ctx, out, protocol.NewError(req.RequestID, protocol.ErrProtoBadRequest, err.Error()))
		return
	}
	if req.ProtocolVersion != protocol.Version {
		send(ctx, out, protocol.NewError(req.RequestID, protocol.ErrProtoBadRequest, "bad protocol_version"))
		return
	}

	res, err := s.svc.TryRegenerate(ctx, service.Request{
		Rank:          req.Rank,
		Seed:          req.Seed,
		UseRandomSeed: req.UseRandomSeed,
		Pin:           req.Pin,
	})
	if err != nil {
		code := errorCode(err)
		if code == protocol.ErrInternal {
			lg.WithError(err).Error("regenerate failed")
		}
		send(ctx, out, protocol.NewError(req.RequestID, code, err.Error()))
		return
	}
	send(ctx, out, GeneratedMsg(req.RequestID, res, req.IncludeMesh))
	s.broadcast(sessionID, GeneratedMsg("", res, false))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrBusy):
		return protocol.ErrBusy
	case errors.Is(err, tuning.ErrInvalidConfig), errors.Is(err, service.ErrPinWithoutSnapshot):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}

// broadcast tells every other session that the cave changed. Slow sessions
// miss the notice rather than stall the rebuild.
func (s *Server) broadcast(from string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.sessions {
		if id == from {
			continue
		}
		select {
		case ch <- b:
		default:
		}
	}
}

func send(ctx context.Context, out chan<- []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, protocol.HelloMsg) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", hello
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", hello
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", hello
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", hello
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	sessionID := uuid.NewString()
	cats := s.svc.Catalogs()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Ranks:           []int{2, 3},
		Catalogs: protocol.CatalogDigests{
			Placeholders: protocol.DigestRef{Digest: cats.Placeholders.Digest, Count: len(cats.Placeholders.Palette)},
		},
	}
	if cur := s.svc.Current(); cur != nil {
		welcome.Current = cur.Result.ID
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", hello
	}
	return sessionID, hello
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
