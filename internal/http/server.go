package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"ledgerdash/internal/cache"
	"ledgerdash/internal/core"
	"ledgerdash/internal/log"
	ports "ledgerdash/internal/sheets"
	appweb "ledgerdash/web"
)

// SyncPublisher asks the sync worker to refresh the stored ledger.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, requestedBy string) (string, error)
}

// Options tunes a Server. The zero value serves without caching, without
// sync requests and with the default logger.
type Options struct {
	CacheTTL  time.Duration
	Publisher SyncPublisher
	Logger    *log.Logger
	// PostLimit is the number of POST requests a client may make per minute.
	PostLimit int
}

type Server struct {
	http.Server
	templates   *template.Template
	provider    *ledgerProvider
	publisher   SyncPublisher
	rateLimiter *rateLimiter
	caches      *cache.Manager

	logger     *log.Logger
	requestLog *log.StructuredLogger
	security   securityMetrics
	startedAt  time.Time

	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"money": core.FormatAmount,
	"count": func(n int) string { return humanize.Comma(int64(n)) },
	"ago":   humanize.Time,
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, source ports.Source, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	postLimit := opts.PostLimit
	if postLimit <= 0 {
		postLimit = 10
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		provider:    newLedgerProvider(source, opts.CacheTTL, logger),
		publisher:   opts.Publisher,
		rateLimiter: newRateLimiter(postLimit, time.Minute),
		caches:      cache.NewManager(),
		logger:      logger.WithComponent(log.ComponentHTTP),
		requestLog:  log.NewStructuredLogger(logger),
		startedAt:   time.Now(),
	}
	s.Handler = s.withMiddleware(mux)

	for _, c := range s.provider.cleaners() {
		s.caches.Register(c)
	}
	s.caches.StartCleanup(5 * time.Minute)
	go s.rateLimiter.startCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.WarnContext(context.Background(), "Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.WarnContext(context.Background(), "Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardAPI)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return s
}

// Invalidate forces the next request to reload the ledger.
func (s *Server) Invalidate() {
	s.provider.Invalidate()
}

// Shutdown stops background cleanup and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
