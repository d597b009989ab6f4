// Package web serves the charger dashboard and its status API.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/monitor"
)

// Poller is satisfied by monitor.Monitor.
type Poller interface {
	Poll(ctx context.Context) (monitor.Status, error)
	Last() (monitor.Status, bool)
}

// Server serves the dashboard over HTTP.
type Server struct {
	httpServer *http.Server
	poller     Poller
	ntfyURL    string
	ctx        context.Context
}

// New creates a Server polling the charger through p. ntfyURL is reported back to the dashboard.
func New(ctx context.Context, addr string, p Poller, ntfyURL string) *Server {
	s := &Server{poller: p, ntfyURL: ntfyURL, ctx: ctx}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// StatusResponse is the JSON body of /api/status.
type StatusResponse struct {
	Timestamp float64               `json:"timestamp"`
	Bits12    *uint16               `json:"bits12"`
	Slots     []charger.SlotReading `json:"slots"`
	NtfyURL   string                `json:"ntfy_url"`
	Error     string                `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	// a client going away must not abort a bus transaction half way
	ctx := chgctx.WithLogger(context.WithoutCancel(r.Context()), chgctx.Logger(s.ctx))
	ctx = chgctx.SetVerbose(ctx, chgctx.IsVerbose(s.ctx))
	st, err := s.poller.Poll(ctx)
	resp := formatStatus(st, s.ntfyURL)
	code := http.StatusOK
	if err != nil {
		resp.Error = "charger not connected or I2C error: " + err.Error()
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func formatStatus(st monitor.Status, ntfyURL string) StatusResponse {
	resp := StatusResponse{
		Timestamp: float64(st.Time.Unix()) + float64(st.Time.Nanosecond())/1e9,
		Slots:     st.Slots,
		NtfyURL:   ntfyURL,
	}
	if st.Err == nil {
		bits := uint16(st.Snapshot)
		resp.Bits12 = &bits
	}
	if resp.Slots == nil {
		resp.Slots = []charger.SlotReading{}
	}
	return resp
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	st, ok := s.poller.Last()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, page{Status: st, Polled: ok, NtfyURL: s.ntfyURL})
}
