package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/winter-dragon/dragonlog/internal/store"
)

// BuildFunc validates an entry and renders its notification. It must be a
// pure function of the entry.
type BuildFunc func(e *Entry) (Notification, error)

// EffectFunc performs the side effect of an action.
type EffectFunc func(ctx context.Context, env Env, e *Entry) error

// Env is what an effect may touch besides the entry itself.
type Env struct {
	Log   *slog.Logger
	Store store.Store
}

// Handler is the strategy registered for one action.
type Handler struct {
	Action Action
	Build  BuildFunc
	Effect EffectFunc // nil means log only
	Stub   bool       // both methods fail with ErrNotImplemented
}

// Descriptor pairs an action with its handler. It is immutable after
// NewRegistry returns.
type Descriptor struct {
	action   Action
	category Category
	handler  Handler
	log      *slog.Logger
}

func (d Descriptor) Action() Action     { return d.action }
func (d Descriptor) Category() Category { return d.category }
func (d Descriptor) Stub() bool         { return d.handler.Stub }

// Bind creates the single-use event for e.
func (d Descriptor) Bind(e *Entry, st store.Store) *Event {
	return &Event{
		d:     d,
		entry: e,
		env: Env{
			Log:   d.log.With("entry_id", e.ID, "guild_id", e.GuildID),
			Store: st,
		},
	}
}

// Registry is the static action → handler table.
type Registry struct {
	byAction map[Action]Descriptor
}

// NewRegistry builds the table. Each handler receives its own logger scoped
// to the action name. Registering an action twice is an error.
func NewRegistry(logger *slog.Logger, handlers []Handler) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{byAction: make(map[Action]Descriptor, len(handlers))}
	for _, h := range handlers {
		if _, dup := r.byAction[h.Action]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Action)
		}
		if h.Build == nil && !h.Stub {
			return nil, fmt.Errorf("handler %s has no builder", h.Action)
		}
		cat := CategoryOf(h.Action)
		if cat == CategoryUnknown {
			return nil, fmt.Errorf("handler %s has no category", h.Action)
		}
		r.byAction[h.Action] = Descriptor{
			action:   h.Action,
			category: cat,
			handler:  h,
			log:      logger.With("handler", string(h.Action)),
		}
	}
	return r, nil
}

// Classify returns the descriptors registered for e.Action. Unknown actions
// yield an empty result; classification never fails.
func (r *Registry) Classify(e *Entry) []Descriptor {
	if e == nil {
		return nil
	}
	d, ok := r.byAction[e.Action]
	if !ok {
		return nil
	}
	return []Descriptor{d}
}

// Descriptors lists every registered descriptor sorted by action.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.byAction))
	for _, d := range r.byAction {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].action < out[j].action })
	return out
}

// Event is one handler invocation for one entry. Handle and Notification are
// each meant to be called once; Notification is pure and may be repeated.
type Event struct {
	d     Descriptor
	entry *Entry
	env   Env
}

func (ev *Event) Action() Action { return ev.d.action }

// Handle runs the side effect.
func (ev *Event) Handle(ctx context.Context) error {
	if ev.d.handler.Stub {
		return fmt.Errorf("%s: %w", ev.d.action, ErrNotImplemented)
	}
	ev.env.Log.Debug("audit event", "action", ev.entry.Action, "target", targetID(ev.entry.Target))
	if ev.d.handler.Effect == nil {
		return nil
	}
	return ev.d.handler.Effect(ctx, ev.env, ev.entry)
}

// Notification builds the payload and stamps the category.
func (ev *Event) Notification() (Notification, error) {
	if ev.d.handler.Stub {
		return Notification{}, fmt.Errorf("%s: %w", ev.d.action, ErrNotImplemented)
	}
	n, err := ev.d.handler.Build(ev.entry)
	if err != nil {
		return Notification{}, err
	}
	n.Category = ev.d.category
	return n, nil
}

func targetID(t Target) string {
	if t == nil {
		return ""
	}
	return t.TargetID()
}
