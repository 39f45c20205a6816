// Package server exposes the crawl service over HTTP and streams crawl
// progress to WebSocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/internal/types"
	"github.com/sitewatch/sitewatch/pkg/scheduler"
	"github.com/sitewatch/sitewatch/pkg/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the WebSocket frame for progress and status events.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Service   *service.CrawlService
	Broadcast *Broadcaster
	// Scheduler, when set, receives the recurring trigger for every
	// enabled source added through the API and drops it again on delete.
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

type Server struct {
	service   *service.CrawlService
	broadcast *Broadcaster
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Broadcast == nil {
		config.Broadcast = NewBroadcaster()
	}
	return &Server{
		service:   config.Service,
		broadcast: config.Broadcast,
		scheduler: config.Scheduler,
		logger:    config.Logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources", s.handleAddSource)
	mux.HandleFunc("GET /api/sources/{id}", s.handleGetSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)
	mux.HandleFunc("POST /api/sources/{id}/crawl", s.handleCrawl)
	mux.HandleFunc("POST /api/crawl", s.handleCrawlAll)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	sources, err := s.service.ListSources(r.Context(), enabledOnly)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var src models.Source
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.service.AddSource(r.Context(), &src)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.scheduler != nil && src.Enabled {
		if err := s.scheduler.Register(&src); err != nil {
			s.logger.Warn("scheduling failed for new source",
				zap.String("id", id), zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.service.GetSource(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, types.ErrSourceNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.service.DeleteSource(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, types.ErrSourceNotFound)
		return
	}
	if s.scheduler != nil {
		s.scheduler.Unregister(r.PathValue("id"))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.service.GetSource(r.Context(), id); err != nil {
		if errors.Is(err, types.ErrSourceNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	count, err := s.service.CrawlSource(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"documents": count})
}

func (s *Server) handleCrawlAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.CrawlAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"documents": count})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing query parameter q"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	var (
		docs []models.Document
		err  error
	)
	if r.URL.Query().Get("mode") == "semantic" {
		docs, err = s.service.SearchSemantic(r.Context(), query, limit)
	} else {
		docs, err = s.service.Search(r.Context(), query, limit)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Statistics(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.broadcast.attach(conn)
	defer func() {
		s.broadcast.detach(conn)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("bad websocket message", zap.Error(err))
			continue
		}
		if msg.Type == "crawl" {
			go s.runCrawl(msg.Content)
		}
	}
}

// runCrawl serves crawl requests arriving over the socket. Progress frames
// reach every attached client through the broadcaster.
func (s *Server) runCrawl(sourceID string) {
	s.broadcast.send(Message{Type: "status", Content: "crawl started", Data: sourceID})
	count, err := s.service.CrawlSource(context.Background(), sourceID)
	if err != nil {
		s.broadcast.send(Message{Type: "error", Content: err.Error(), Data: sourceID})
		return
	}
	s.broadcast.send(Message{
		Type:    "done",
		Content: strconv.Itoa(count) + " documents",
		Data:    sourceID,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
