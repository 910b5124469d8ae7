// Command sample runs a small books API on top of the github.com/bjaus/dispatch
// dispatcher, wired the way a host application would wire it.
//
// Run:
//
//	go run ./cmd/sample
//	go run ./cmd/sample -config config.toml
//
// Generate the OpenAPI spec:
//
//	go run ./cmd/sample -spec                          print to stdout
//	go run ./cmd/sample -spec -o openapi.json          write to file
//
// Then explore:
//
//	GET    http://localhost:8080/api/                   entrypoint (main endpoint)
//	GET    http://localhost:8080/api/books              list books
//	GET    http://localhost:8080/api/books/{id}         get book (X-Locale: 1 for German titles)
//	POST   http://localhost:8080/api/books              create book
//	DELETE http://localhost:8080/api/books/{id}         delete book (forbidden for the seed data)
//	GET    http://localhost:8080/openapi.json           OpenAPI spec
//	GET    http://localhost:8080/docs                   documentation UI
//	GET    http://localhost:8080/metrics                Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaus/dispatch"
)

func main() {
	configFlag := flag.String("config", "", "Path to a TOML config file")
	specFlag := flag.Bool("spec", false, "Print the OpenAPI spec to stdout and exit")
	outFlag := flag.String("o", "", "Output file for the spec (requires -spec)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	d, err := newDispatcher(cfg, reg)
	if err != nil {
		slog.Error("dispatcher", "err", err)
		os.Exit(1)
	}

	if *specFlag {
		if err := writeSpec(d, *outFlag); err != nil {
			slog.Error("spec generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	mux := http.NewServeMux()
	if base := d.BasePath(); base != "" {
		mux.Handle(base, d)
	}
	mux.Handle(d.BasePath()+"/", d)
	mux.Handle("GET /openapi.json", d.SpecHandler())
	mux.Handle("GET /openapi.yaml", d.SpecYAMLHandler())
	mux.Handle("GET /docs", d.DocsHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "err", err)
		}
	}()

	slog.Info("starting server", "addr", srv.Addr, "base_path", d.BasePath())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}
	slog.Info("server stopped")
}

func loadConfig(path string) (*dispatch.Config, error) {
	if path != "" {
		return dispatch.LoadConfig(path)
	}
	cfg := &dispatch.Config{
		Title:      "Books API",
		Version:    "1.0.0",
		Entrypoint: true,
		Languages: []dispatch.LanguageConfig{
			{ID: 0, Locale: "en", Title: "English"},
			{ID: 1, Locale: "de", Title: "Deutsch"},
		},
	}
	return cfg, cfg.Finalize()
}

func newDispatcher(cfg *dispatch.Config, reg prometheus.Registerer) (*dispatch.Dispatcher, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		dispatch.WithMetrics(reg),
		dispatch.WithRateLimit(dispatch.RateLimitConfig{Rate: 20, Burst: 40}),
		dispatch.WithBodyLimit(1<<20),
		dispatch.WithTimeout(5*time.Second),
	)

	d := dispatch.New(opts...)
	d.Use(dispatch.Recovery(slog.Default()))
	d.Use(dispatch.RequestID())
	d.Use(dispatch.Logger(slog.Default()))

	books := d.Group("/books", dispatch.WithGroupTags("books"))
	dispatch.Get(books, "", handleListBooks,
		dispatch.WithSummary("List books"),
	)
	dispatch.Get(books, "/{id}", handleGetBook,
		dispatch.WithSummary("Get book by ID"),
	)
	dispatch.Post(books, "", handleCreateBook,
		dispatch.WithSummary("Create book"),
		dispatch.WithErrors(http.StatusUnprocessableEntity),
	)
	dispatch.Delete(books, "/{id}", handleDeleteBook,
		dispatch.WithSummary("Delete book"),
		dispatch.WithErrors(http.StatusForbidden),
	)
	return d, nil
}

func writeSpec(d *dispatch.Dispatcher, outFile string) error {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	return d.WriteSpec(w)
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

var store = &bookStore{
	books: map[int]*bookRecord{
		1: {id: 1, titles: map[string]string{"en": "The Trial", "de": "Der Process"}, author: "Franz Kafka", seed: true},
		2: {id: 2, titles: map[string]string{"en": "The Magic Mountain", "de": "Der Zauberberg"}, author: "Thomas Mann", seed: true},
	},
	nextID: 3,
}

type bookRecord struct {
	id     int
	titles map[string]string
	author string
	seed   bool
}

type bookStore struct {
	mu     sync.RWMutex
	books  map[int]*bookRecord
	nextID int
}

func (s *bookStore) get(id int) (*bookRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	return b, ok
}

func (s *bookStore) list() []*bookRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*bookRecord, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	return out
}

func (s *bookStore) create(title, author, locale string) *bookRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &bookRecord{id: s.nextID, titles: map[string]string{locale: title}, author: author}
	s.books[b.id] = b
	s.nextID++
	return b
}

func (s *bookStore) delete(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
}

// ---------------------------------------------------------------------------
// Request / Response types
// ---------------------------------------------------------------------------

// Book is the localized view of a book.
type Book struct {
	ID     string `json:"@id"`
	Type   string `json:"@type"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type BookList struct {
	Members    []Book `json:"hydra:member"`
	TotalItems int    `json:"hydra:totalItems"`
}

type BookByIDReq struct {
	ID int `path:"id"`
}

type CreateBookReq struct {
	Body struct {
		Title  string `json:"title" required:"true" maxLength:"200" doc:"Title in the request language"`
		Author string `json:"author" required:"true" maxLength:"120"`
	}
}

func (r *CreateBookReq) Validate() error {
	var violations []dispatch.Violation
	if strings.TrimSpace(r.Body.Title) == "" {
		violations = append(violations, dispatch.Violation{Field: "title", Message: "must not be blank"})
	}
	if strings.TrimSpace(r.Body.Author) == "" {
		violations = append(violations, dispatch.Violation{Field: "author", Message: "must not be blank"})
	}
	if len(violations) > 0 {
		return &dispatch.Fault{
			Status:     http.StatusUnprocessableEntity,
			Detail:     "validation failed",
			Violations: violations,
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func handleListBooks(ctx context.Context, _ *dispatch.Void) (*BookList, error) {
	locale := localeOf(ctx)
	records := store.list()
	list := &BookList{TotalItems: len(records)}
	for _, b := range records {
		list.Members = append(list.Members, b.view(locale))
	}
	return list, nil
}

func handleGetBook(ctx context.Context, req *BookByIDReq) (*Book, error) {
	b, ok := store.get(req.ID)
	if !ok {
		return nil, dispatch.Errorf(http.StatusNotFound, "book %d not found", req.ID)
	}
	view := b.view(localeOf(ctx))
	return &view, nil
}

func handleCreateBook(ctx context.Context, req *CreateBookReq) (*Book, error) {
	b := store.create(req.Body.Title, req.Body.Author, localeOf(ctx))
	view := b.view(localeOf(ctx))
	return &view, nil
}

func handleDeleteBook(_ context.Context, req *BookByIDReq) (*dispatch.Void, error) {
	b, ok := store.get(req.ID)
	if !ok {
		return nil, dispatch.Errorf(http.StatusNotFound, "book %d not found", req.ID)
	}
	if b.seed {
		return nil, &dispatch.Fault{Status: http.StatusForbidden, Title: "Forbidden", Detail: "seed books cannot be deleted"}
	}
	store.delete(req.ID)
	return &dispatch.Void{}, nil
}

func localeOf(ctx context.Context) string {
	lang, ok := dispatch.LanguageFromContext(ctx)
	if !ok {
		return "en"
	}
	base, _ := lang.Tag.Base()
	return base.String()
}

func (b *bookRecord) view(locale string) Book {
	title, ok := b.titles[locale]
	if !ok {
		for _, t := range b.titles {
			title = t
			break
		}
	}
	return Book{
		ID:     "/api/books/" + strconv.Itoa(b.id),
		Type:   "Book",
		Title:  title,
		Author: b.author,
	}
}
