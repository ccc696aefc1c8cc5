package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"rover-console/internal/console"
	"rover-console/internal/logging"
)

// StatusSource provides the console status to serve.
type StatusSource interface {
	Status() console.Status
}

// Server exposes the console's current view over local HTTP. It is read-only.
type Server struct {
	src     StatusSource
	roverID string
	tpl     *template.Template
}

//go:embed templates/index.html
var content embed.FS

func NewServer(src StatusSource, roverID string) *Server {
	funcs := template.FuncMap{"percent": func(f float64) int { return int(f * 100) }}
	tpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html"))
	return &Server{src: src, roverID: roverID, tpl: tpl}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /view", s.handleView)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /notices", s.handleNotices)
	return mux
}

// Start binds addr and serves until ctx is done. It returns once the listener
// is bound, reporting the bound address.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	log := logging.FromContext(ctx)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin server stopped", "err", err)
		}
	}()
	log.Info("admin server listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		RoverID string
		Status  console.Status
	}{
		RoverID: s.roverID,
		Status:  s.src.Status(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.src.Status()
	code := http.StatusOK
	if !st.Live() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"link":                 st.Link,
		"consecutive_failures": st.Failures,
	})
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Status().Notices)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
