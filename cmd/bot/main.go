// Command bot connects to the server and asks for a new cave on an
// interval, logging what comes back.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		rank     = flag.Int("rank", 2, "cave rank to request (2 or 3)")
		seed     = flag.String("seed", "", "fixed seed (empty: random each time)")
		every    = flag.Duration("every", 10*time.Second, "regenerate interval")
		count    = flag.Int("count", 0, "stop after this many caves (0: run until interrupted)")
		withMesh = flag.Bool("mesh", false, "ask for mesh buffers")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lg := logger.WithField("client", *name)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		lg.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: *name}); err != nil {
		lg.Fatalf("send HELLO: %v", err)
	}

	msgs := make(chan []byte, 8)
	go func() {
		defer close(msgs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				lg.WithError(err).Info("connection closed")
				return
			}
			msgs <- b
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	sent, received := 0, 0
	request := func() {
		sent++
		req := protocol.RegenerateMsg{
			Type:            protocol.TypeRegenerate,
			ProtocolVersion: protocol.Version,
			RequestID:       fmt.Sprintf("%s_%d", *name, sent),
			Rank:            *rank,
			Seed:            *seed,
			UseRandomSeed:   *seed == "",
			IncludeMesh:     *withMesh,
		}
		if err := conn.WriteJSON(req); err != nil {
			lg.WithError(err).Error("send REGENERATE")
		}
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			request()
		case b, ok := <-msgs:
			if !ok {
				return
			}
			base, err := protocol.DecodeBase(b)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(b, &w); err != nil {
					continue
				}
				lg.WithFields(logrus.Fields{"session": w.SessionID, "current": w.Current}).Info("WELCOME")
				request()
			case protocol.TypeGenerated:
				var g protocol.GeneratedMsg
				if err := json.Unmarshal(b, &g); err != nil {
					continue
				}
				lg.WithFields(logrus.Fields{
					"gen_id":   g.GenID,
					"request":  g.RequestID,
					"seed":     g.Seed,
					"rooms":    len(g.Rooms),
					"vertices": g.Mesh.Vertices,
					"ms":       g.DurationMs,
				}).Info("GENERATED")
				if g.RequestID == "" {
					continue
				}
				received++
				if *count > 0 && received >= *count {
					return
				}
			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(b, &e); err != nil {
					continue
				}
				lg.WithFields(logrus.Fields{"code": e.Code, "request": e.RequestID}).Warn(e.Message)
			}
		}
	}
}
