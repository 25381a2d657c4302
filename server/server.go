// Package server exposes the loop renderer over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/vsariola/phonoloop"
)

// MaxBodySize limits the size of a posted config.
const MaxBodySize = 1 << 20

type (
	Server struct {
		renderer *phonoloop.Renderer
		logger   *log.Logger
	}

	// BeatResponse is one beat of a timeline in the JSON responses.
	BeatResponse struct {
		Frequency  int   `json:"frequency"`
		DurationMs int64 `json:"durationMs"`
	}

	TimelineResponse struct {
		BeatMs int64          `json:"beatMs"`
		Beats  []BeatResponse `json:"beats"`
	}

	ChordResponse struct {
		Chord     string `json:"chord"`
		Quality   string `json:"quality"`
		Harmonies [3]int `json:"harmonies"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// New returns the routes of the service, wrapped in a CORS handler allowing
// the given origins; any origin when none are given.
func New(renderer *phonoloop.Renderer, logger *log.Logger, allowedOrigins ...string) http.Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{renderer: renderer, logger: logger}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/render", s.handleRender).Methods("POST")
	router.HandleFunc("/timeline", s.handleTimeline).Methods("POST")
	router.HandleFunc("/presets", s.handlePresets).Methods("GET")
	router.HandleFunc("/chords/{token}", s.handleChord).Methods("GET")
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{"X-Render-Id"},
	})
	return c.Handler(router)
}

func (s *Server) readConfig(w http.ResponseWriter, r *http.Request) (phonoloop.Config, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("could not read request body: %w", err))
		return phonoloop.Config{}, false
	}
	cfg, err := phonoloop.ParseConfig(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return phonoloop.Config{}, false
	}
	return cfg, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.readConfig(w, r)
	if !ok {
		return
	}
	loop, err := s.renderer.Render(r.Context(), cfg)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	name, err := cfg.OutputName()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Render-Id", loop.ID.String())
	if _, err := w.Write(loop.Wave); err != nil {
		s.logger.Printf("could not write wave of render %v: %v", loop.ID, err)
	}
}

// handleTimeline arranges the melody of a config. Beats last 60/tempo
// seconds; the percussion track is not read.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.readConfig(w, r)
	if !ok {
		return
	}
	t, err := s.renderer.Arrange(cfg)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	beat := (time.Minute / time.Duration(cfg.Tempo)).Truncate(time.Millisecond)
	res := TimelineResponse{BeatMs: beat.Milliseconds(), Beats: make([]BeatResponse, len(t))}
	for i, b := range t.WithDuration(beat) {
		res.Beats[i] = BeatResponse{Frequency: b.Frequency, DurationMs: b.Duration.Milliseconds()}
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.renderer.Presets))
	for k := range s.renderer.Presets {
		names = append(names, k)
	}
	sort.Strings(names)
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleChord(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	c, err := s.renderer.Resolver.Resolve(token)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	h, err := s.renderer.Resolver.Harmonies(c)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, ChordResponse{Chord: c.Token(), Quality: c.Quality.String(), Harmonies: h})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("could not encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

var badRequest = []error{
	phonoloop.ErrMalformedChord,
	phonoloop.ErrUnknownNote,
	phonoloop.ErrUnsupportedMeasure,
	phonoloop.ErrInvalidOffset,
	phonoloop.ErrInvalidMode,
	phonoloop.ErrInvalidConfig,
	phonoloop.ErrUnknownPolicy,
	phonoloop.ErrUnknownPreset,
	phonoloop.ErrRateMismatch,
	phonoloop.ErrDecode,
}

func statusOf(err error) int {
	for _, e := range badRequest {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, phonoloop.ErrExternalTool) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
