// Package api is the request/response surface for the configuration UI
// and any number of polling observers. All GET endpoints are pure
// projections of the state store: side-effect free, idempotent, and safe
// under concurrent polling. Writes happen only through the supervisor.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mi-lab/backend/internal/discovery"
	"github.com/mi-lab/backend/internal/docstore"
	"github.com/mi-lab/backend/internal/history"
	"github.com/mi-lab/backend/internal/session"
	"github.com/mi-lab/backend/internal/supervisor"
	"github.com/mi-lab/backend/internal/ws"
)

const historyLimit = 50

type Server struct {
	sup         *supervisor.Supervisor
	store       *docstore.Store
	prober      *discovery.Prober
	hist        *history.Store
	broadcaster *ws.Broadcaster
}

// NewServer wires the poll bridge. hist and broadcaster may be nil; the
// corresponding endpoints degrade gracefully.
func NewServer(sup *supervisor.Supervisor, store *docstore.Store, prober *discovery.Prober, hist *history.Store, broadcaster *ws.Broadcaster) *Server {
	return &Server{
		sup:         sup,
		store:       store,
		prober:      prober,
		hist:        hist,
		broadcaster: broadcaster,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session/start", s.handleStart)
	mux.HandleFunc("/api/session/stop", s.handleStop)
	mux.HandleFunc("/api/session/status", s.handleStatus)
	mux.HandleFunc("/api/session/feedback", s.handleFeedback)
	mux.HandleFunc("/api/session/health", s.handleHealth)
	mux.HandleFunc("/api/streams", s.handleStreams)
	mux.HandleFunc("/api/history", s.handleHistory)
	if s.broadcaster != nil {
		mux.HandleFunc("/ws", s.broadcaster.HandleWS)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cfg session.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid session config: %v", err), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.sup.Start(cfg); err != nil {
		if errors.Is(err, supervisor.ErrSessionActive) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"started": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Stop never fails: stopping nothing is a no-op, and races with an
	// already-dead child are expected.
	if err := s.sup.Stop(); err != nil {
		log.Printf("api: stop: %v", err)
	}
	writeJSON(w, map[string]bool{"stopped": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.store.ReadStatus())
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.store.ReadFeedback())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.sup.Health())
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	streams := s.prober.Probe(r.Context())
	if streams == nil {
		streams = []session.Stream{}
	}
	writeJSON(w, streams)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.hist == nil {
		writeJSON(w, []history.Entry{})
		return
	}
	entries, err := s.hist.Recent(historyLimit)
	if err != nil {
		log.Printf("api: history: %v", err)
		entries = nil
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("server listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
