package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/bridge"
	"github.com/runanywhere/nativeaudio/internal/config"
	"github.com/runanywhere/nativeaudio/internal/service"
)

const (
	maxArgsBytes = 64 << 10
	callTimeout  = 30 * time.Second
)

// Server exposes the bridge over HTTP.
type Server struct {
	service service.Service
	bridge  *bridge.Bridge
	cfg     *config.Config
	addr    string

	httpServer *http.Server
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	*service.Status
	Methods   []string `json:"methods"`
	OutputDir string   `json:"output_dir"`
}

// New creates a server for svc listening on host:port.
func New(svc service.Service, host string, port int) *Server {
	return &Server{
		service: svc,
		bridge:  bridge.New(svc),
		cfg:     svc.GetConfig(),
		addr:    net.JoinHostPort(host, fmt.Sprint(port)),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/bridge/", s.handleBridge)

	mux.HandleFunc("/api/recording/start", s.route(http.MethodPost, "startRecording"))
	mux.HandleFunc("/api/recording/stop", s.route(http.MethodPost, "stopRecording"))
	mux.HandleFunc("/api/recording/cancel", s.route(http.MethodPost, "cancelRecording"))
	mux.HandleFunc("/api/recording/level", s.route(http.MethodGet, "getAudioLevel"))

	mux.HandleFunc("/api/playback/play", s.route(http.MethodPost, "playAudio"))
	mux.HandleFunc("/api/playback/stop", s.route(http.MethodPost, "stopPlayback"))
	mux.HandleFunc("/api/playback/pause", s.route(http.MethodPost, "pausePlayback"))
	mux.HandleFunc("/api/playback/resume", s.route(http.MethodPost, "resumePlayback"))
	mux.HandleFunc("/api/playback/status", s.route(http.MethodGet, "getPlaybackStatus"))

	mux.HandleFunc("/api/recordings", s.route(http.MethodGet, "listRecordings"))
	mux.HandleFunc("/api/recordings/stream/", s.handleRecordingStream)
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting nativeaudio server",
		"addr", s.addr,
		"local_ip", getLocalIP(),
		"output_dir", s.cfg.Output.Directory)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, drains the bridge and releases the devices.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.bridge.Close()
	if cerr := s.service.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// handleIndex lists the available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "nativeaudio")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "POST /api/bridge/{method}")
	for _, m := range s.bridge.Methods() {
		fmt.Fprintf(w, "  %s\n", m)
	}
	fmt.Fprintln(w, "GET  /status")
	fmt.Fprintln(w, "GET  /api/recordings")
	fmt.Fprintln(w, "GET  /api/recordings/stream/{name}")
}

// handleStatus returns the recorder and player state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	s.sendJSON(w, http.StatusOK, StatusResponse{
		Status:    s.service.GetStatus(),
		Methods:   s.bridge.Methods(),
		OutputDir: s.cfg.Output.Directory,
	})
}

// handleBridge invokes any bridge method by name
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/bridge/")
	if name == "" || strings.Contains(name, "/") {
		s.sendErrorResponse(w, http.StatusNotFound, bridge.CodeUnknownMethod, "Method name required", "path", r.URL.Path)
		return
	}

	s.invoke(w, r, name)
}

// route serves a fixed bridge method on a convenience path.
func (s *Server) route(httpMethod, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireMethod(w, r, httpMethod) {
			return
		}
		s.invoke(w, r, name)
	}
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request, name string) {
	args, err := readArgs(r)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, bridge.CodeInvalidArgs, err.Error(), "method", name)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	value, err := s.bridge.Call(ctx, name, args)
	if err != nil {
		var be *bridge.Error
		if errors.As(err, &be) {
			s.sendErrorResponse(w, statusForCode(be.Code), be.Code, be.Message, "method", name)
			return
		}
		s.sendErrorResponse(w, http.StatusGatewayTimeout, bridge.CodeInternal, err.Error(), "method", name)
		return
	}

	s.sendJSON(w, http.StatusOK, value)
}

// readArgs returns the call arguments as JSON. A JSON body is passed as is;
// form values are converted to a flat JSON object.
func readArgs(r *http.Request) (json.RawMessage, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") || r.URL.RawQuery != "" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("failed to parse form: %w", err)
		}
		if len(r.Form) > 0 {
			flat := make(map[string]string, len(r.Form))
			for k := range r.Form {
				flat[k] = r.Form.Get(k)
			}
			return json.Marshal(flat)
		}
	}

	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	return body, nil
}

// handleRecordingStream serves a recording file
func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/api/recordings/stream/")
	if filename == "" {
		http.Error(w, "Filename required", http.StatusBadRequest)
		return
	}

	// Validate filename (prevent path traversal)
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".wav") {
		http.Error(w, "File type not supported", http.StatusForbidden)
		return
	}

	filePath := filepath.Join(s.cfg.Output.Directory, filename)
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "File not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error accessing file", http.StatusInternalServerError)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "Error accessing file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, filename, info.ModTime(), file)
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.sendErrorResponse(w, http.StatusMethodNotAllowed, "", "Method not allowed")
	return false
}

// statusForCode maps a rejection code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case bridge.CodeInvalidArgs:
		return http.StatusBadRequest
	case bridge.CodeUnknownMethod:
		return http.StatusNotFound
	case string(audio.CodePermissionDenied):
		return http.StatusForbidden
	case string(audio.CodeNotActive):
		return http.StatusConflict
	case string(audio.CodeNoData), string(audio.CodePlayback):
		return http.StatusUnprocessableEntity
	case string(audio.CodeDeviceInit):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// sendErrorResponse logs and writes a JSON error body
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, code, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "code", code, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	body := map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	}
	if code != "" {
		body["code"] = code
	}
	s.sendJSON(w, statusCode, body)
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
