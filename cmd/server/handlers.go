package main

import (
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"marketsync/internal/endpoint"
	"marketsync/internal/snapshot"
)

// snapshotServer serves the JSON files the sync cycle writes. Endpoint and
// window names are validated against the registry so request paths can
// never escape the data directories.
type snapshotServer struct {
	dataDir    string
	historyDir string
	endpoints  map[string]endpoint.Descriptor
	log        zerolog.Logger
}

func newSnapshotServer(dataDir, historyDir string, eps []endpoint.Descriptor, log zerolog.Logger) *snapshotServer {
	return &snapshotServer{
		dataDir:    dataDir,
		historyDir: historyDir,
		endpoints:  endpoint.ByName(eps),
		log:        log,
	}
}

func (s *snapshotServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/market/all", s.handleConsolidated)
	mux.HandleFunc("GET /v1/market/lite", s.handleLite)
	mux.HandleFunc("GET /v1/market/history/{endpoint}/{window}", s.handleHistory)
	mux.HandleFunc("GET /v1/market/{endpoint}", s.handleLatest)
	return mux
}

func (s *snapshotServer) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, filepath.Join(s.dataDir, snapshot.ConsolidatedFile))
}

func (s *snapshotServer) handleLite(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, filepath.Join(s.dataDir, snapshot.LiteFile))
}

func (s *snapshotServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("endpoint"), ".json")
	d, ok := s.endpoints[name]
	if !ok {
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}
	dir := s.dataDir
	if d.StockData {
		dir = filepath.Join(s.dataDir, snapshot.StockSubdir)
	}
	s.serveFile(w, filepath.Join(dir, d.OutputFile))
}

func (s *snapshotServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("endpoint")
	window := r.PathValue("window")
	d, ok := s.endpoints[name]
	if !ok {
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}
	known := false
	for _, wd := range d.Windows {
		if wd.Name == window {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "unknown window", http.StatusNotFound)
		return
	}
	s.serveFile(w, filepath.Join(s.historyDir, name, window+".json"))
}

func (s *snapshotServer) serveFile(w http.ResponseWriter, path string) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "not available yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("file", path).Msg("snapshot read failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
