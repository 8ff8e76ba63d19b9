// Package control is the HTTP + WebSocket Control Server of spec.md §4.7.
//
// Grounded on the teacher's (David-Antunes/gone) internal/daemon +
// internal/leader/server.go pairing: a stdlib net/http.ServeMux with one
// handler function per verb and small ParseRequest/SendResponse/SendError
// JSON helpers. The two WebSocket surfaces are new (the teacher has none)
// and are built on github.com/coder/websocket, the library the rest of the
// retrieved pack (HerbHall/subnetree) uses for the same purpose.
package control

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/netkit-project/netkit/internal/config"
	"github.com/netkit-project/netkit/internal/topology"
	"golang.org/x/time/rate"
)

var ctrlLog = log.New(os.Stdout, "CONTROL INFO: ", log.Ltime)

// Server is the HTTP entry point wiring every verb to the Topology Manager.
type Server struct {
	cfg   *config.Config
	topo  *topology.Manager
	mux   *http.ServeMux
	limit *rate.Limiter
}

// NewServer builds the ServeMux and registers every handler.
func NewServer(cfg *config.Config, topo *topology.Manager) *Server {
	s := &Server{
		cfg:  cfg,
		topo: topo,
		mux:  http.NewServeMux(),
		// one command-exec per 200ms sustained, bursts of 5, per spec.md
		// §4.7's rate-limiting requirement.
		limit: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /devices", s.handleAddDevice)
	s.mux.HandleFunc("DELETE /devices/{name}", s.handleRemoveDevice)
	s.mux.HandleFunc("GET /devices/{name}", s.handleInspect)
	s.mux.HandleFunc("POST /devices/{name}/gateway", s.handleSetGateway)
	s.mux.HandleFunc("POST /devices/{name}/failures", s.handleInjectFailure)
	s.mux.HandleFunc("DELETE /devices/{name}/failures/{kind}", s.handleClearFailure)
	s.mux.HandleFunc("POST /devices/{name}/exec", s.handleExec)
	s.mux.HandleFunc("POST /links", s.handleAddLink)
	s.mux.HandleFunc("DELETE /links/{id}", s.handleRemoveLink)
	s.mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	s.mux.HandleFunc("GET /ws/terminal/{device}", s.handleTerminalWS)
	s.mux.HandleFunc("GET /ws/packets", s.handlePacketsWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on cfg.BindAddr, blocking until ctx
// is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.BindAddr, Handler: s}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	ctrlLog.Println("listening on", s.cfg.BindAddr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
