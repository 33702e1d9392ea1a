package module

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"civitas/internal/platform/i18n"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// Registry holds handlers keyed by (module type, entity). Registering a
// second handler for a key fails, so dispatch can never be ambiguous.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Key]Handler
	logger   *slog.Logger
	observe  func(key Key, elapsed time.Duration, err error)
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithObserver receives the key, latency and outcome of every dispatch.
func WithObserver(fn func(key Key, elapsed time.Duration, err error)) RegistryOption {
	return func(r *Registry) {
		r.observe = fn
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers: make(map[Key]Handler),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler. Duplicate keys return CodeHandlerConflict.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "handler is required")
	}
	key := h.Key()
	if key.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "handler key requires module type and entity")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		return dErrors.Newf(dErrors.CodeHandlerConflict, "handler already registered for %s", key)
	}
	r.handlers[key] = h
	return nil
}

// MustRegister registers handlers at startup and panics on conflicts.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the handler for the action.
func (r *Registry) Resolve(a Action) (Handler, error) {
	key := a.Key()
	r.mu.RLock()
	h, ok := r.handlers[key]
	r.mu.RUnlock()
	if !ok || !h.CanHandle(a) {
		return nil, dErrors.Newf(dErrors.CodeHandlerNotFound, "no handler registered for %s", key)
	}
	return h, nil
}

// Lookup returns the handler registered under key, if any.
func (r *Registry) Lookup(key Key) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

// Keys lists registered keys in stable order.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Dispatch routes the action to its handler and localizes the result message.
func (r *Registry) Dispatch(ctx context.Context, a Action, scope Scope) (*Result, error) {
	h, err := r.Resolve(a)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := h.Execute(ctx, a, scope)
	if r.observe != nil {
		r.observe(h.Key(), time.Since(start), err)
	}
	if err != nil {
		r.logger.WarnContext(ctx, "module handler failed",
			"handler", h.Key().String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}
	if res == nil || res.Record == nil {
		return nil, dErrors.Newf(dErrors.CodeInternal, "handler %s returned no record", h.Key())
	}
	res.Success = true
	if res.MessageKey != "" {
		res.Message = i18n.Sprintf(ctx, res.MessageKey, res.MessageArgs...)
	}
	r.logger.InfoContext(ctx, "specialized record created",
		"handler", h.Key().String(),
		"record_id", res.Record.ID.String(),
		"number", res.Number,
	)
	return res, nil
}

// Notify propagates a protocol status change to the record's handler. It
// returns true when the record status changed and was written through scope.
func (r *Registry) Notify(ctx context.Context, rec *Record, protocolStatus string, scope Scope) (bool, error) {
	if rec == nil {
		return false, nil
	}
	h, ok := r.Lookup(rec.Key())
	if !ok {
		return false, nil
	}
	hook, ok := h.(StatusHook)
	if !ok {
		return false, nil
	}
	next, ok := hook.RecordStatus(protocolStatus)
	if !ok || next == rec.Status {
		return false, nil
	}
	rec.Status = next
	if _, typed := rec.Attributes["status"]; typed {
		rec.Attributes["status"] = next
	}
	rec.UpdatedAt = requestcontext.Now(ctx)
	if err := scope.UpdateRecord(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}
