// Package main implements a mock listing provider for local development.
// It serves canned search responses from a JSON fixture so the refresh
// worker can run without real provider credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type searchResponse struct {
	Results []listing `json:"results"`
	Total   int       `json:"total"`
}

type listing struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	URL         string  `json:"url"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-provider/testdata/search_response.json", "path to search response fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "listings", len(fixture.Results))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", searchHandler(logger, fixture))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock provider", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*searchResponse, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &resp, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func searchHandler(logger *slog.Logger, fixture *searchResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Require the API key header but don't verify the value.
		if r.Header.Get("X-Api-Key") == "" {
			logger.Warn("search request missing API key header")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
			json.NewEncoder(w).Encode(map[string]string{"error": "missing api key"})
			return
		}

		q := strings.ToLower(r.URL.Query().Get("q"))
		marketplace := r.URL.Query().Get("marketplace")

		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
				limit = v
			}
		}

		// Filter by query substring match on title.
		var matched []listing
		for _, l := range fixture.Results {
			if q == "" || strings.Contains(strings.ToLower(l.Title), q) {
				matched = append(matched, l)
			}
		}

		total := len(matched)
		if len(matched) > limit {
			matched = matched[:limit]
		}
		if matched == nil {
			matched = []listing{}
		}

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		json.NewEncoder(w).Encode(searchResponse{Results: matched, Total: total})
		logger.Info("search",
			"query", q,
			"marketplace", marketplace,
			"matched", total,
			"returned", len(matched),
			"limit", limit,
		)
	}
}
