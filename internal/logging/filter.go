package logging

import (
	"context"
	"log/slog"
	"sync"
)

// componentKey is the attribute key components use to scope their loggers.
const componentKey = "component"

// levels is the shared, mutable level table behind a ComponentFilterHandler
// and all handlers derived from it via WithAttrs/WithGroup.
type levels struct {
	mu         sync.RWMutex
	defaultLvl slog.Level
	byName     map[string]slog.Level
}

func (l *levels) get(component string) slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if lvl, ok := l.byName[component]; ok {
		return lvl
	}
	return l.defaultLvl
}

// min returns the lowest level configured for any component.
func (l *levels) min() slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := l.defaultLvl
	for _, lvl := range l.byName {
		if lvl < m {
			m = lvl
		}
	}
	return m
}

// ComponentFilterHandler filters records by the level configured for the
// record's "component" attribute, falling back to a default level.
type ComponentFilterHandler struct {
	next      slog.Handler
	levels    *levels
	component string // set when a "component" attr was bound via WithAttrs
}

// NewComponentFilterHandler wraps next. Records below the component's level
// (or defaultLevel if none is configured) are dropped.
func NewComponentFilterHandler(next slog.Handler, defaultLevel slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		next: next,
		levels: &levels{
			defaultLvl: defaultLevel,
			byName:     make(map[string]slog.Level),
		},
	}
}

// SetLevel overrides the level for a component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.levels.mu.Lock()
	defer h.levels.mu.Unlock()
	h.levels.byName[component] = level
}

func (h *ComponentFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.component != "" {
		return level >= h.levels.get(h.component)
	}
	// Component may still arrive as a record attr; decide in Handle.
	return level >= h.levels.min()
}

func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == componentKey {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.levels.get(component) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == componentKey {
			component = a.Value.String()
		}
	}
	return &ComponentFilterHandler{
		next:      h.next.WithAttrs(attrs),
		levels:    h.levels,
		component: component,
	}
}

func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	return &ComponentFilterHandler{
		next:      h.next.WithGroup(name),
		levels:    h.levels,
		component: h.component,
	}
}
