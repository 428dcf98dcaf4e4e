package main

import (
	"flag"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"shengji/internal/config"
	"shengji/internal/game"
	"shengji/internal/session"
)

func main() {
	configPath := flag.String("config", "data/server_config.json", "path to the server config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()
	log := logger.Sugar()

	if err := config.Load(*configPath); err != nil {
		log.Fatalw("config load failed", "path", *configPath, "err", err)
	}
	cfg := config.Get()

	controller := game.NewController(game.Options{
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
		WithJokers: cfg.WithJokers,
		Rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, log)
	go controller.Run()

	go serveTCP(cfg.TCPAddr, controller, log)
	go serveWS(cfg.WSAddr, controller, log)

	log.Infow("server up", "tcp", cfg.TCPAddr, "ws", cfg.WSAddr)
	<-controller.Done()
	log.Infow("session terminated")
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// serveTCP accepts raw stream connections speaking length-prefixed frames.
func serveTCP(addr string, controller *game.Controller, log *zap.SugaredLogger) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalw("tcp listen failed", "addr", addr, "err", err)
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Errorw("tcp accept failed", "err", err)
			return
		}
		controller.AddConnection(session.NewFrameTransport(conn))
	}
}

// serveWS accepts WebSocket connections carrying the same payloads as binary
// messages.
func serveWS(addr string, controller *game.Controller, log *zap.SugaredLogger) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debugw("websocket upgrade failed", "err", err)
			return
		}
		controller.AddConnection(session.NewWSTransport(conn))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalw("websocket listen failed", "addr", addr, "err", err)
	}
}
