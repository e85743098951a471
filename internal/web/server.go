// Package web exposes the JSON API and the websocket event stream.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/manto"
	"github.com/mantohq/manto/internal/natsbus"
	"github.com/mantohq/manto/internal/registry"
	"github.com/mantohq/manto/internal/scheduler"
	"github.com/mantohq/manto/internal/store"
)

type Server struct {
	store     *store.Store
	bus       *natsbus.Bus
	nats      *natsbus.Client
	coord     *manto.Coordinator
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	hub       *Hub
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

func NewServer(s *store.Store, bus *natsbus.Bus, coord *manto.Coordinator, reg *registry.Registry, sched *scheduler.Scheduler, cfg config.WebConfig, version string) *Server {
	return &Server{
		store:     s,
		bus:       bus,
		coord:     coord,
		registry:  reg,
		scheduler: sched,
		hub:       NewHub(),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	// Forward NATS events to connected websocket clients.
	s.subscribeEvents()

	mux := http.NewServeMux()
	s.registerAPI(mux)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	handler := s.withMiddleware(mux)
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if s.cfg.Auth != "" && r.URL.Path != "/api/health" {
			if !s.checkAuth(r) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// checkAuth accepts either a bearer token or the password half of Basic
// Auth, both compared against the configured secret.
func (s *Server) checkAuth(r *http.Request) bool {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token == s.cfg.Auth
	}
	if _, pass, ok := r.BasicAuth(); ok {
		return pass == s.cfg.Auth
	}
	return false
}

func (s *Server) subscribeEvents() {
	if s.bus == nil {
		return
	}
	client, err := natsbus.NewClient(s.bus)
	if err != nil {
		slog.Error("web server nats client failed", "error", err)
		return
	}
	s.nats = client

	_, _ = client.Subscribe(natsbus.TopicEventsAll, func(msg *nats.Msg) {
		var ev natsbus.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("invalid NATS event payload", "error", err)
			return
		}
		s.hub.Broadcast(ev)
	})
}
