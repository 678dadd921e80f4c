package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/CTAG07/parody/pkg/markov"
)

// maxParodyWords caps the words a single request may ask for.
const maxParodyWords = 10000

// ParodyAPI serves parodies from a fixed set of compiled graphs. Graphs are
// immutable, so any number of requests walk them concurrently.
type ParodyAPI struct {
	graphs       map[string]*markov.Graph
	tokenizer    markov.Tokenizer
	defaultWords int
	logger       *slog.Logger
}

// NewParodyAPI creates a new instance of the ParodyAPI.
func NewParodyAPI(graphs map[string]*markov.Graph, tokenizer markov.Tokenizer, defaultWords int, logger *slog.Logger) *ParodyAPI {
	return &ParodyAPI{
		graphs:       graphs,
		tokenizer:    tokenizer,
		defaultWords: defaultWords,
		logger:       logger,
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (p *ParodyAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", p.handleHealth)
	mux.HandleFunc("GET /api/models", p.handleListModels)
	mux.HandleFunc("GET /api/parody/{name}", p.handleParody)
}

// ModelInfo describes one served graph.
type ModelInfo struct {
	Name string `json:"name"`
	markov.Stats
}

// ParodyResponse is the body returned by the parody endpoint.
type ParodyResponse struct {
	Model string   `json:"model"`
	Order int      `json:"order"`
	Start []string `json:"start"`
	Words []string `json:"words"`
	Text  string   `json:"text"`
}

func (p *ParodyAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "models": len(p.graphs)})
}

// handleListModels lists every graph, sorted by name.
func (p *ParodyAPI) handleListModels(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(p.graphs))
	for name := range p.graphs {
		names = append(names, name)
	}
	slices.Sort(names)

	models := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		models = append(models, ModelInfo{Name: name, Stats: p.graphs[name].Stats()})
	}
	respondWithJSON(w, http.StatusOK, models)
}

// handleParody walks the named graph. Query parameters: words (length),
// seed (deterministic walk) and start (space separated start history).
func (p *ParodyAPI) handleParody(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	g, ok := p.graphs[name]
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Model '%s' not found", name))
		return
	}

	query := r.URL.Query()
	words := p.defaultWords
	if v := query.Get("words"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxParodyWords {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("words must be between 0 and %d", maxParodyWords))
			return
		}
		words = n
	}

	var src markov.Source
	if v := query.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
		src = markov.NewSeededSource(seed)
	}

	start, err := startHistory(g, query.Get("start"), src)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	startWords, err := start.Words(g.Dictionary())
	if err != nil {
		p.logger.Error("Failed to resolve start history", "model", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve start history")
		return
	}

	walker := markov.NewWalker(g, start, src)
	walker.SetLogger(p.logger)
	generated := walker.Generate(words)

	p.logger.Debug("Parody generated", "model", name, "words", len(generated))
	respondWithJSON(w, http.StatusOK, ParodyResponse{
		Model: name,
		Order: g.Order(),
		Start: startWords,
		Words: generated,
		Text:  markov.Render(generated, p.tokenizer),
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// loadGraphs reads every raw graph in dir, keyed by file name without the
// .raw extension.
func loadGraphs(dir string, codec *markov.Codec) (map[string]*markov.Graph, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.raw"))
	if err != nil {
		return nil, err
	}
	graphs := make(map[string]*markov.Graph, len(paths))
	for _, path := range paths {
		g, found, err := codec.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if found {
			graphs[strings.TrimSuffix(filepath.Base(path), ".raw")] = g
		}
	}
	return graphs, nil
}

// runServe serves the graphs of the output directory until ctx is cancelled.
func runServe(ctx context.Context, cfg *Config, logger *slog.Logger, codec *markov.Codec) error {
	graphs, err := loadGraphs(cfg.OutputDir, codec)
	if err != nil {
		return fmt.Errorf("failed to load graphs: %w", err)
	}
	if len(graphs) == 0 {
		logger.Warn("No compiled graphs found", "output_dir", cfg.OutputDir)
	}

	mux := http.NewServeMux()
	NewParodyAPI(graphs, newTokenizer(cfg), cfg.ParodyWords, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting parody server", "address", server.Addr, "models", len(graphs))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			return fmt.Errorf("parody server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Stopping parody server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("parody server shutdown failed: %w", err)
	}
	logger.Info("Parody server stopped.")
	return nil
}
