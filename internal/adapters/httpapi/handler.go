// Package httpapi exposes composition sessions, the badged catalog and
// stored exports over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	blobcore "closetfit/internal/blob/core"
	"closetfit/internal/core"
	"closetfit/internal/logging"
	"closetfit/internal/session"
	"closetfit/pkg/domain"
)

// signedURLTTL bounds the lifetime of export download redirects.
const signedURLTTL = 15 * time.Minute

// Exports reads stored outfit exports.
type Exports interface {
	Open(ctx context.Context, name string) (blobcore.Info, io.ReadCloser, error)
	List(ctx context.Context) ([]blobcore.Info, error)
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// Handler serves the closetfit API.
type Handler struct {
	Sessions *session.Registry
	Catalog  core.Catalog
	Exports  Exports
	Metrics  http.Handler
	Logger   *slog.Logger
}

// NewHandler constructs a handler over reg and cat.
func NewHandler(reg *session.Registry, cat core.Catalog) *Handler {
	return &Handler{Sessions: reg, Catalog: cat, Logger: logging.New("http")}
}

// Router builds the chi router with every route registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the API on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Get("/health", h.handleHealth)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.handleOpen)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.withSession(h.handleView))
			r.Delete("/", h.handleClose)
			r.Post("/pointer/down", h.withSession(h.handlePointerDown))
			r.Post("/pointer/move", h.withSession(h.handlePointerMove))
			r.Post("/pointer/up", h.withSession(h.handlePointerUp))
			r.Post("/items", h.withSession(h.handleAdd))
			r.Delete("/slots/{slot}", h.withSession(h.handleRemoveSlot))
			r.Delete("/flexible/{index}", h.withSession(h.handleRemoveFlexible))
			r.Post("/randomize", h.withSession(h.handleRandomize))
			r.Post("/clear", h.withSession(h.handleClear))
			r.Post("/export", h.withSession(h.handleExport))
			r.Get("/notifications", h.withSession(h.handleNotifications))
			r.Get("/catalog", h.withSession(h.handleCatalog))
		})
		r.Get("/exports", h.handleListExports)
		r.Get("/exports/{name}", h.handleDownload)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *session.Session)

func (h *Handler) withSession(fn sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.Sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		fn(w, r, s)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	s := h.Sessions.Open()
	v, err := s.View(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": s.ID(), "view": v})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.Close(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request, s *session.Session) {
	h.respondView(w, r, s, http.StatusOK, nil)
}

// respondView writes the current view, merged with extra top-level fields.
func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, s *session.Session, status int, extra map[string]any) {
	v, err := s.View(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	body := map[string]any{"id": s.ID(), "view": v}
	for k, val := range extra {
		body[k] = val
	}
	writeJSON(w, status, body)
}

type pointerRequest struct {
	Position core.Point  `json:"position"`
	Layout   core.Layout `json:"layout"`
}

func (h *Handler) handlePointerDown(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req session.PointerDown
	if !decode(w, r, &req) {
		return
	}
	if err := s.PointerDown(r.Context(), req); err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if req.Source == core.SourceGrid {
		status = http.StatusAccepted
	}
	h.respondView(w, r, s, status, nil)
}

func (h *Handler) handlePointerMove(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req pointerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.PointerMove(r.Context(), req.Position, req.Layout); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

type dropResponse struct {
	Kind   core.DropKind `json:"kind"`
	ItemID string        `json:"item_id,omitempty"`
	From   int           `json:"from"`
	To     int           `json:"to"`
}

func (h *Handler) handlePointerUp(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req pointerRequest
	if !decode(w, r, &req) {
		return
	}
	drop, err := s.PointerUp(r.Context(), req.Position, req.Layout)
	if err != nil {
		h.fail(w, err)
		return
	}
	resp := dropResponse{Kind: drop.Kind, From: drop.From, To: drop.To}
	if drop.Item != nil {
		resp.ItemID = drop.Item.ID
	}
	h.respondView(w, r, s, http.StatusOK, map[string]any{"drop": resp})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if err := s.Add(r.Context(), req.ItemID); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

func (h *Handler) handleRemoveSlot(w http.ResponseWriter, r *http.Request, s *session.Session) {
	slot := domain.SlotKey(chi.URLParam(r, "slot"))
	if !slot.Fixed() {
		writeError(w, http.StatusBadRequest, "slot must be top, bottom or shoes")
		return
	}
	if err := s.Remove(r.Context(), slot); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

func (h *Handler) handleRemoveFlexible(w http.ResponseWriter, r *http.Request, s *session.Session) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	if err := s.RemoveFlexible(r.Context(), index); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

func (h *Handler) handleRandomize(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Randomize(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Clear(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK, nil)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, s *session.Session) {
	res, err := s.Export(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	body := map[string]any{"file_name": res.FileName, "surface": res.Surface}
	if res.Location != "" {
		name := path.Base(res.Location)
		body["location"] = res.Location
		body["url"] = "/api/v1/exports/" + name
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, _ *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": s.Notifications()})
}

type catalogEntry struct {
	domain.Item
	InOutfit bool `json:"in_outfit"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request, s *session.Session) {
	q := r.URL.Query()
	filter := core.Filter{
		Category: domain.Category(q.Get("category")),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if err := filter.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.Catalog.FetchAllItems(r.Context(), filter)
	if err != nil {
		h.Logger.Warn("catalog listing failed", "error", err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	inUse := s.InUse()
	out := make([]catalogEntry, 0, len(items))
	for _, it := range items {
		out = append(out, catalogEntry{Item: it, InOutfit: inUse.Contains(it.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "in_use": inUse})
}

type exportEntry struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url"`
}

func (h *Handler) handleListExports(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	infos, err := h.Exports.List(r.Context())
	if err != nil {
		h.Logger.Error("list exports", "error", err)
		writeError(w, http.StatusInternalServerError, "exports unavailable")
		return
	}
	out := make([]exportEntry, 0, len(infos))
	for _, info := range infos {
		name := path.Base(info.Key)
		out = append(out, exportEntry{
			Name:         name,
			Size:         info.Size,
			ContentType:  info.ContentType,
			LastModified: info.LastModified,
			URL:          "/api/v1/exports/" + name,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": out})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	name := chi.URLParam(r, "name")
	url, err := h.Exports.SignedURL(r.Context(), name, signedURLTTL)
	if err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	if !errors.Is(err, blobcore.ErrUnsupported) {
		h.Logger.Warn("sign export url", "name", name, "error", err)
	}
	info, rc, err := h.Exports.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, blobcore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "export not found")
			return
		}
		h.Logger.Error("open export", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "export unavailable")
		return
	}
	defer func() { _ = rc.Close() }()
	ct := info.ContentType
	if ct == "" {
		ct = "image/png"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warn("stream export", "name", name, "error", err)
	}
}

// fail maps a composer error to a status and writes the user-facing message.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
	}
	writeError(w, status, domain.UserMessage(err))
}

func statusFor(err error) int {
	var (
		routing   domain.RoutingError
		capacity  domain.CapacityError
		duplicate domain.DuplicateError
		index     domain.IndexError
		fetch     domain.FetchError
		export    domain.ExportError
		rule      core.RuleViolationError
	)
	switch {
	case errors.Is(err, core.ErrSurfaceClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDragActive), errors.Is(err, core.ErrStaleGrab):
		return http.StatusConflict
	case errors.As(err, &routing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &capacity), errors.As(err, &duplicate), errors.As(err, &index), errors.As(err, &rule):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyCatalog):
		return http.StatusConflict
	case errors.As(err, &export):
		if errors.Is(export.Err, domain.ErrEmptyOutfit) {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	case errors.As(err, &fetch):
		if errors.Is(fetch.Err, domain.ErrItemNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
