package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/pkg/streaming"
)

const maxBodySize = 4 * 1024

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /api/scenarios", s.handleScenarios)
	s.mux.HandleFunc("GET /config/world", s.handleWorld)
	s.mux.HandleFunc("POST /config/speed", s.handleSpeed)
	s.mux.HandleFunc("POST /config/ai_level", s.handleAILevel)
	s.mux.HandleFunc("GET /simulation", s.handleSimulation)
}

// HealthResponse answers GET /.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Sessions int    `json:"sessions"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, streaming.StatusResponse{Status: "error", Message: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Service:  logging.ServiceName,
		Sessions: s.SessionCount(),
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Scenarios.List())
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	cfg := s.simulationConfig()
	writeJSON(w, http.StatusOK, streaming.WorldInfo{Width: cfg.WorldWidth, Height: cfg.WorldHeight})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req streaming.SpeedRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Multiplier == nil || math.IsNaN(*req.Multiplier) || math.IsInf(*req.Multiplier, 0) {
		writeError(w, http.StatusBadRequest, errors.New("multiplier must be a finite number"))
		return
	}
	v := s.SetSpeedMultiplier(*req.Multiplier)
	writeJSON(w, http.StatusOK, streaming.StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("speed multiplier set to %g", v),
	})
}

func (s *Server) handleAILevel(w http.ResponseWriter, r *http.Request) {
	var req streaming.AILevelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.SetAILevel(req.Level); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, streaming.StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("AI level set to %s", req.Level),
	})
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess, err := s.newSession(conn)
	if err != nil {
		s.logger.Error("Session setup failed", "error", err)
		_ = conn.Close()
		return
	}

	s.addSession(sess)
	s.wg.Add(1)
	sess.logger.Info("Session opened", "remote", r.RemoteAddr)
	go func() {
		defer s.wg.Done()
		defer s.removeSession(sess)
		sess.run()
	}()
}

// checkOrigin accepts requests without an Origin header and allow-listed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) originAllowed(origin string) bool {
	return s.origins["*"] || s.origins[origin]
}

// cors answers preflight requests and tags responses for allowed origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			if origin != "" && !s.originAllowed(origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
