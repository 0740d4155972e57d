// Package api serves the local observability surface over HTTP: device
// status, the in-memory log buffer, version info and Prometheus metrics.
// The companion app's control path stays on the binary protocol; nothing
// here mutates device state.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/mstrov/stripd/internal/logging"
	"github.com/mstrov/stripd/internal/render"
	"github.com/mstrov/stripd/internal/version"
)

// StatusSource provides the device status snapshot. Implemented by the
// render scheduler.
type StatusSource interface {
	Status() render.Status
}

// Options configures the API server.
type Options struct {
	StatusSource      StatusSource
	PrometheusHandler http.Handler
}

// Server is the HTTP status server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	status     StatusSource
	started    time.Time
	logger     *slog.Logger
}

// NewServer creates the API server on a fresh mux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("Stripd API", version.String())
	config.Info.Description = "Status and observability API for the LED strip controller"
	config.Servers = []*huma.Server{}

	s := &Server{
		api:     humago.New(mux, config),
		mux:     mux,
		status:  opts.StatusSource,
		started: time.Now(),
		logger:  logging.GetLogger("api"),
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.registerRoutes()
	return s
}

// GetMux returns the underlying mux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down immediately.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Health status"`
	}
}

// VersionResponse carries build metadata.
type VersionResponse struct {
	Body version.Info
}

// StatusResponse is the device status snapshot.
type StatusResponse struct {
	Body StatusData
}

// StatusData is the status payload.
type StatusData struct {
	State         string  `json:"state" doc:"Connection state"`
	Address       string  `json:"address,omitempty" doc:"Assigned network address"`
	Mode          uint8   `json:"mode" doc:"Active visual mode id"`
	ModeName      string  `json:"mode_name" doc:"Active visual mode name"`
	Brightness    uint8   `json:"brightness" doc:"Output brightness 0-255"`
	UptimeSeconds float64 `json:"uptime_seconds" doc:"Process uptime"`
}

// LogsResponse returns the in-memory log ring buffer.
type LogsResponse struct {
	Body struct {
		Entries []logging.LogEntry `json:"entries"`
	}
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Device status",
		Description: "Connection state, active mode and brightness.",
		Tags:        []string{"status"},
	}, func(ctx context.Context, _ *struct{}) (*StatusResponse, error) {
		st := s.status.Status()
		return &StatusResponse{Body: StatusData{
			State:         st.State,
			Address:       st.Address,
			Mode:          st.Mode,
			ModeName:      st.ModeName,
			Brightness:    st.Brightness,
			UptimeSeconds: time.Since(s.started).Seconds(),
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent logs",
		Description: "Contents of the in-memory log ring buffer, oldest first.",
		Tags:        []string{"logs"},
	}, func(ctx context.Context, _ *struct{}) (*LogsResponse, error) {
		resp := &LogsResponse{}
		if buf := logging.GetBuffer(); buf != nil {
			resp.Body.Entries = buf.ReadAll()
		}
		return resp, nil
	})
}
