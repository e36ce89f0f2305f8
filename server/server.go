// Package server exposes the interpreter over HTTP so a remote control
// surface can load scores, seek and feed events.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/sightreader/db"
	"github.com/jsphweid/sightreader/file"
	"github.com/jsphweid/sightreader/interpreter"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/score"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

type Options struct {
	Library model.ScoreLibrary
	// Optional.
	Metadata       db.MetadataStore
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Server struct {
	interp   *interpreter.Interpreter
	library  model.ScoreLibrary
	metadata db.MetadataStore
	origins  []string
	logger   *slog.Logger

	// held across a load so the id always matches the loaded score
	mu     sync.Mutex
	loadID string
}

func New(interp *interpreter.Interpreter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lib := opts.Library
	if lib == nil {
		lib = make(model.ScoreLibrary)
	}
	return &Server{
		interp:   interp,
		library:  lib,
		metadata: opts.Metadata,
		origins:  opts.AllowedOrigins,
		logger:   logger,
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/score", s.HandleLoadScore).Methods("POST")
	router.HandleFunc("/score", s.HandleGetScore).Methods("GET")
	router.HandleFunc("/scores", s.HandleListScores).Methods("GET")
	router.HandleFunc("/seek", s.HandleSeek).Methods("POST")
	router.HandleFunc("/position", s.HandlePosition).Methods("GET")
	router.HandleFunc("/cursor", s.HandleCursor).Methods("GET")
	router.HandleFunc("/input", s.HandleInput).Methods("POST")
	return router
}

func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(s.Router())
}

// ListenAndServe runs until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// LoadScore loads into the interpreter and returns the new load id with the
// score as loaded under that id.
func (s *Server) LoadScore(sc *model.Score, label string) (string, *model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.interp.LoadScore(sc, label); err != nil {
		return "", nil, err
	}
	s.loadID = uuid.New().String()
	return s.loadID, s.interp.Score(), nil
}

func (s *Server) resolve(req model.LoadScoreRequest) (*model.Score, error) {
	switch {
	case req.Score != nil:
		return req.Score, nil
	case req.ID != nil:
		path, ok := s.library[*req.ID]
		if !ok {
			return nil, errors.Wrapf(errNotInLibrary, "id %d", *req.ID)
		}
		return score.LoadFile(path)
	case req.Path != "":
		for _, path := range s.library {
			if path == req.Path {
				return score.LoadFile(path)
			}
		}
		return nil, errors.Wrapf(errNotInLibrary, "path %s", req.Path)
	}
	return nil, errors.Wrap(errBadRequest, "one of score, id or path is required")
}

func (s *Server) HandleLoadScore(w http.ResponseWriter, r *http.Request) {
	var req model.LoadScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	sc, err := s.resolve(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, loaded, err := s.LoadScore(sc, req.Label)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.LoadScoreResponse{
		LoadID:   id,
		Source:   loaded.Source,
		Measures: len(loaded.Measures),
		Groups:   loaded.NumGroups(),
	})
}

func (s *Server) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id := s.loadID
	loaded := s.interp.Score()
	s.mu.Unlock()
	if loaded == nil {
		s.writeError(w, model.ErrNoScore)
		return
	}

	res := model.ScoreResponse{
		LoadID:   id,
		Source:   loaded.Source,
		Measures: len(loaded.Measures),
		Groups:   loaded.NumGroups(),
	}
	if s.metadata != nil {
		md, ok, err := s.metadata.GetScoreMetadata(loaded.Source)
		if err != nil {
			s.logger.Warn("server: metadata lookup failed", "source", loaded.Source, "err", err)
		} else if ok {
			res.Metadata = &md
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleListScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, file.Listing(s.library))
}

func (s *Server) HandleSeek(w http.ResponseWriter, r *http.Request) {
	var req model.SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	if err := s.interp.Seek(req.Measure); err != nil {
		s.writeError(w, err)
		return
	}
	s.HandlePosition(w, r)
}

func (s *Server) HandlePosition(w http.ResponseWriter, r *http.Request) {
	if s.interp.State() == interpreter.Empty {
		s.writeError(w, model.ErrNoScore)
		return
	}
	cur, next := s.interp.GetPosition()
	writeJSON(w, http.StatusOK, model.PositionResponse{Current: cur, Lookahead: next})
}

func (s *Server) HandleCursor(w http.ResponseWriter, r *http.Request) {
	c, ok := s.interp.Cursor()
	loaded := s.interp.Score()
	if !ok || loaded == nil {
		s.writeError(w, model.ErrNoScore)
		return
	}
	res := model.CursorResponse{
		MeasureIndex: c.MeasureIndex,
		GroupIndex:   c.GroupIndex,
		Satisfied:    toInts(c.Satisfied),
		Finished:     c.Finished,
	}
	if c.MeasureIndex < len(loaded.Measures) && c.GroupIndex < len(loaded.Measures[c.MeasureIndex].Groups) {
		res.Group = toInts(loaded.Measures[c.MeasureIndex].Groups[c.GroupIndex].Pitches())
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleInput(w http.ResponseWriter, r *http.Request) {
	var req model.InputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(model.ErrInvalidEvent, err.Error()))
		return
	}
	ev, err := model.EventFromRequest(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.interp.Input(ev); err != nil {
		s.writeError(w, err)
		return
	}
	s.HandlePosition(w, r)
}

func toInts(notes model.Notes) []int {
	res := make([]int, len(notes))
	for i, n := range notes {
		res[i] = int(n)
	}
	return res
}
