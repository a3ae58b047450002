package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"evmwallet/pkg/history"
	"evmwallet/pkg/networks"
	"evmwallet/pkg/wallet"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server mirrors the wallet state over HTTP and websocket so external
// dashboards can follow along with the TUI.
type Server struct {
	sync    *wallet.Synchronizer
	hist    *history.Client
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *http.ServeMux
}

func NewServer(s *wallet.Synchronizer, hist *history.Client) *Server {
	srv := &Server{
		sync:    s,
		hist:    hist,
		clients: make(map[*websocket.Conn]bool),
		mux:     http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) Start(port int) error {
	go s.listenToWallet()

	fmt.Printf("API Server listening on :%d\n", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.sync.State()
	data := map[string]interface{}{
		"status":  s.sync.Status().String(),
		"state":   state,
		"network": networks.Name(state.ChainID),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	state := s.sync.State()
	if !state.Connected {
		http.Error(w, `{"error":"not connected"}`, http.StatusServiceUnavailable)
		return
	}

	chainID := state.ChainID
	if raw := r.URL.Query().Get("chainid"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			chainID = id
		}
	}

	entries := s.hist.Fetch(r.Context(), state.Address, chainID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"address": state.Address,
		"chainId": chainID,
		"entries": entries,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	// Send initial state
	initial := map[string]interface{}{
		"type": "initial",
		"data": map[string]interface{}{
			"status": s.sync.Status().String(),
			"state":  s.sync.State(),
		},
	}
	_ = conn.WriteJSON(initial)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToWallet() {
	sub := s.sync.Subscribe()
	defer s.sync.Unsubscribe(sub)

	for event := range sub {
		s.broadcast(event)
	}
}

func (s *Server) broadcast(event wallet.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(event); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
