package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/export"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
	"github.com/matzehuels/mindmap/pkg/store"
)

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 4 << 20
)

// serveCommand creates the serve command exposing stored diagrams over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		service string
		answer  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored diagrams over HTTP",
		Long: `Serve stored diagrams over HTTP.

Endpoints (JSON unless noted):
  GET    /api/diagrams                         list stored diagrams
  GET    /api/diagrams/{id}                    positioned document
  PUT    /api/diagrams/{id}                    replace (laid out if unpositioned)
  DELETE /api/diagrams/{id}                    delete
  GET    /api/diagrams/{id}/export/{format}    png, pdf, svg, json, txt or dot
  POST   /api/diagrams/{id}/followups          {"parentId","question"}, answered in the background
  POST   /api/diagrams/{id}/nodes/{node}/toggle  fold or unfold a node
  DELETE /api/diagrams/{id}/nodes/{node}       delete a node
  PUT    /api/diagrams/{id}/direction          {"direction":"TB"}

Each open diagram is owned by one event loop, so concurrent requests and
late answers never interleave mid-mutation. Every change is saved to the
configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var asker source.Asker
			if service != "" || answer != "" || c.cfg.Service.AskURL != "" {
				a, err := c.newAsker(service, answer, noCache)
				if err != nil {
					return err
				}
				asker = a
			}
			return c.runServe(cmd.Context(), addr, asker)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&service, "service", "", "answer service URL (default from config)")
	cmd.Flags().StringVar(&answer, "answer", "", "answer every follow-up with this text when no service is configured")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable answer caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, asker source.Asker) error {
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := newServer(ctx, s, asker, c.diagramOptions(), c.cfg.Export.Padding, c.cfg.Export.Scale, c.Logger)
	defer srv.close()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()

	printSuccess("Serving %s store", c.cfg.StoreConfig().Backend)
	printKeyValue("URL", StyleLink.Render("http://"+addr+"/api/diagrams"))
	printDetail("Press Ctrl+C to stop")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// =============================================================================
// Server
// =============================================================================

// liveDiagram is an open diagram and the loop that owns it.
type liveDiagram struct {
	loop   *diagram.Loop
	cancel context.CancelFunc
	done   chan struct{}
}

type server struct {
	store   store.Store
	asker   source.Asker
	opts    []diagram.Option
	padding float64
	scale   float64
	cache   cache.Cache
	keyer   cache.Keyer
	logger  *log.Logger

	ctx  context.Context
	mu   sync.Mutex
	open map[string]*liveDiagram
	wg   sync.WaitGroup
}

func newServer(ctx context.Context, s store.Store, asker source.Asker, opts []diagram.Option, padding, scale float64, logger *log.Logger) *server {
	return &server{
		store:   s,
		asker:   asker,
		opts:    opts,
		padding: padding,
		scale:   scale,
		cache:   cache.NewMemoryCache(),
		keyer:   cache.NewScopedKeyer(nil, "serve"),
		logger:  logger,
		ctx:     context.WithoutCancel(ctx),
		open:    make(map[string]*liveDiagram),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(s.logger))
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/diagrams", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handlePut)
			r.Delete("/", s.handleDelete)
			r.Get("/export/{format}", s.handleExport)
			r.Post("/followups", s.handleFollowUp)
			r.Put("/direction", s.handleDirection)
			r.Post("/nodes/{node}/toggle", s.handleToggle)
			r.Delete("/nodes/{node}", s.handleDeleteNode)
		})
	})
	return r
}

// close stops every open loop and waits for background answers.
func (s *server) close() {
	s.mu.Lock()
	for id, live := range s.open {
		live.cancel()
		<-live.done
		delete(s.open, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.cache.Close()
}

// live returns the loop for a stored diagram, loading it on first use.
func (s *server) live(ctx context.Context, id string) (*diagram.Loop, error) {
	if err := mmerrors.ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.open[id]; ok {
		return live.loop, nil
	}
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := diagram.Load(ctx, doc, s.opts...)
	if err != nil {
		return nil, err
	}
	return s.start(id, d), nil
}

// start runs a loop for d, replacing any loop already open for id.
// Callers hold s.mu.
func (s *server) start(id string, d *diagram.Diagram) *diagram.Loop {
	if old, ok := s.open[id]; ok {
		old.cancel()
		<-old.done
	}
	ctx, cancel := context.WithCancel(s.ctx)
	live := &liveDiagram{loop: diagram.NewLoop(d), cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(live.done)
		live.loop.Run(ctx)
	}()
	s.open[id] = live
	return live.loop
}

// persist saves the diagram owned by loop.
func (s *server) persist(ctx context.Context, id string, loop *diagram.Loop) error {
	return loop.Do(ctx, func(d *diagram.Diagram) error {
		return s.store.Save(ctx, id, d.Document())
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	loop, err := s.live(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var doc outline.Document
	if err := loop.Do(r.Context(), func(d *diagram.Diagram) error {
		doc = d.Document()
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := mmerrors.ValidateID(id); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := outline.ReadJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := diagram.Load(r.Context(), doc, s.opts...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc = d.Document()
	if err := s.store.Save(r.Context(), id, doc); err != nil {
		writeError(w, r, err)
		return
	}
	s.mu.Lock()
	s.start(id, d)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	if live, ok := s.open[id]; ok {
		live.cancel()
		<-live.done
		delete(s.open, id)
	}
	s.mu.Unlock()
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, keyOpts, err := s.exportOptions(r, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	loop, err := s.live(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		st  *diagram.RenderState
		doc outline.Document
	)
	if err := loop.Do(ctx, func(d *diagram.Diagram) error {
		st, doc = d.RenderState(), d.Document()
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := cache.HashJSON(doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := s.keyer.ExportKey(hash, keyOpts)
	data, hit, _ := s.cache.Get(ctx, key)
	if !hit {
		data, err = export.Render(ctx, st, f, opts...)
		if err != nil {
			writeError(w, r, err)
			return
		}
		_ = s.cache.Set(ctx, key, data, cache.ExportTTL)
	}
	w.Header().Set("Content-Type", contentType(f))
	w.Header().Set("X-Cache", map[bool]string{true: "hit", false: "miss"}[hit])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// exportOptions reads padding and scale overrides from the query string.
func (s *server) exportOptions(r *http.Request, f export.Format) ([]export.Option, cache.ExportKeyOpts, error) {
	key := cache.ExportKeyOpts{Format: string(f), Padding: s.padding, Scale: s.scale}
	params := []struct {
		name     string
		dst      *float64
		min, max float64
	}{
		{"padding", &key.Padding, 0, export.MaxPadding},
		{"scale", &key.Scale, 0.1, export.MaxScale},
	}
	for _, p := range params {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		// The negated comparison also rejects NaN.
		if err != nil || !(v >= p.min && v <= p.max) {
			return nil, key, mmerrors.New(mmerrors.ErrCodeInvalidInput,
				"invalid %s %q: want a number in [%g, %g]", p.name, raw, p.min, p.max)
		}
		*p.dst = v
	}
	return []export.Option{export.WithPadding(key.Padding), export.WithScale(key.Scale)}, key, nil
}

type followUpRequest struct {
	ParentID string `json:"parentId"`
	Question string `json:"question"`
}

type followUpResponse struct {
	ID    string        `json:"id"`
	State outline.State `json:"state"`
}

func (s *server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	if s.asker == nil {
		writeError(w, r, mmerrors.New(mmerrors.ErrCodeUnsupported, "no answer service configured"))
		return
	}
	var req followUpRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "decode follow-up"))
		return
	}
	id := chi.URLParam(r, "id")
	loop, err := s.live(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The answer outlives the request.
	bg := s.ctx
	failed := make(chan error, 1)
	tracked := source.AskerFunc(func(ctx context.Context, nodeID, q string) (string, error) {
		a, err := s.asker.Ask(ctx, nodeID, q)
		failed <- err
		return a, err
	})
	nodeID, err := loop.Ask(bg, req.ParentID, req.Question, tracked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.persist(r.Context(), id, loop); err != nil {
		writeError(w, r, err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logger := s.logger.With("diagram", id, "node", nodeID)
		if _, err := waitAnswered(bg, loop, nodeID, failed); err != nil {
			logger.Warn("follow-up left pending", "err", err)
			return
		}
		if err := s.persist(bg, id, loop); err != nil {
			logger.Warn("save answered follow-up", "err", err)
			return
		}
		logger.Debug("follow-up answered")
	}()

	writeJSON(w, http.StatusAccepted, followUpResponse{ID: nodeID, State: outline.StatePending})
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, diagram.ToggleCollapse{ID: chi.URLParam(r, "node")})
}

func (s *server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, diagram.DeleteNode{ID: chi.URLParam(r, "node")})
}

func (s *server) handleDirection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, mmerrors.Wrap(mmerrors.ErrCodeInvalidFormat, err, "decode direction"))
		return
	}
	dir, err := layout.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutate(w, r, diagram.SetDirection{Direction: dir})
}

// mutate dispatches a structural command, saves on success and returns
// the new document.
func (s *server) mutate(w http.ResponseWriter, r *http.Request, cmd diagram.Command) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	loop, err := s.live(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var doc outline.Document
	err = loop.Do(ctx, func(d *diagram.Diagram) error {
		if res := d.Dispatch(ctx, cmd); res.Err != nil {
			return res.Err
		}
		doc = d.Document()
		return s.store.Save(ctx, id, doc)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// =============================================================================
// Middleware & Responses
// =============================================================================

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string        `json:"error"`
	Code  mmerrors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		loggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: mmerrors.UserMessage(err), Code: mmerrors.GetCode(err)})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	switch mmerrors.GetCode(err) {
	case mmerrors.ErrCodeNotFound, mmerrors.ErrCodeNodeNotFound:
		return http.StatusNotFound
	case mmerrors.ErrCodeInvalidInput, mmerrors.ErrCodeInvalidFormat, mmerrors.ErrCodeInvalidPath,
		mmerrors.ErrCodeUnknownParent, mmerrors.ErrCodeInvalidTopology:
		return http.StatusBadRequest
	case mmerrors.ErrCodeInvalidState:
		return http.StatusConflict
	case mmerrors.ErrCodeLayoutTimeout, mmerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case mmerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func contentType(f export.Format) string {
	switch f {
	case export.PNG:
		return "image/png"
	case export.PDF:
		return "application/pdf"
	case export.SVG:
		return "image/svg+xml"
	case export.JSON:
		return "application/json"
	case export.DOT:
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
