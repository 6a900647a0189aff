// Package engine orchestrates one customer turn end to end: load the
// session, route, dispatch, persist history and state, deliver the reply.
// Turns for the same customer are serialized; different customers proceed
// in parallel.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/router"
	"github.com/ventabot/ventabot/internal/session"
	"github.com/ventabot/ventabot/internal/transport"
)

// historyWindow is how many recent turns are loaded for the router's AI
// steps.
const historyWindow = 20

// Rter produces one decision per turn. Implemented by router.Router.
type Rter interface {
	Route(ctx context.Context, in *router.Input) *domain.Decision
}

// Dispatcher executes action-form decisions. Implemented by
// dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error)
}

// keyLock hands out one mutex per customer key. Locks are created lazily
// and never evicted, matching the unbounded session model.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Engine is the per-turn orchestrator.
type Engine struct {
	router     Rter
	dispatcher Dispatcher
	store      session.Store
	sender     transport.Sender
	logger     *slog.Logger
	tracer     trace.Tracer
	locks      *keyLock
}

// New creates an Engine. sender may be nil when replies are returned to
// the caller only (synchronous webhook mode).
func New(r Rter, d Dispatcher, store session.Store, sender transport.Sender, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		router:     r,
		dispatcher: d,
		store:      store,
		sender:     sender,
		logger:     logger,
		tracer:     otel.Tracer("ventabot/engine"),
		locks:      newKeyLock(),
	}
}

// Handle processes one inbound message and returns the reply text. The
// reply is also delivered through the sender when one is configured;
// delivery failure is logged and does not fail the turn.
func (e *Engine) Handle(ctx context.Context, key, text string, isVoice bool) (string, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Handle",
		trace.WithAttributes(attribute.String("customer.key", key)))
	defer span.End()

	lock := e.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	sess, err := session.GetOrCreate(ctx, e.store, key)
	if err != nil {
		return "", err
	}
	hist, err := e.store.RecentHistory(ctx, key, historyWindow)
	if err != nil {
		e.logger.Warn("failed to load history", slog.String("key", key), slog.String("error", err.Error()))
	}

	dec := e.router.Route(ctx, &router.Input{
		Raw:     text,
		Session: sess,
		History: hist,
		IsVoice: isVoice,
	})

	reply, err := e.apply(ctx, dec, sess)
	if err != nil {
		e.logger.Error("failed to apply decision",
			slog.String("key", key),
			slog.String("error", err.Error()))
		reply = router.ReplyFloor
	}

	now := time.Now()
	e.appendHistory(ctx, key, domain.Turn{Role: domain.RoleCustomer, Text: text, Timestamp: now})
	e.appendHistory(ctx, key, domain.Turn{Role: domain.RoleAssistant, Text: reply, Timestamp: now})

	if e.sender != nil {
		if err := e.sender.Send(ctx, key, reply); err != nil {
			e.logger.Warn("reply delivery failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
	return reply, nil
}

// apply runs the decision: actions go to the dispatcher, which owns their
// session effects; message decisions have their transition applied here.
func (e *Engine) apply(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	if dec.Action != "" {
		return e.dispatcher.Dispatch(ctx, dec, sess)
	}

	if dec.NextState != nil || len(dec.ContextPatch) > 0 {
		next := sess.State
		if dec.NextState != nil {
			next = *dec.NextState
		}
		if err := e.store.Update(ctx, sess.Key, next, dec.ContextPatch); err != nil {
			return "", err
		}
	}
	return dec.Message, nil
}

func (e *Engine) appendHistory(ctx context.Context, key string, turn domain.Turn) {
	if err := e.store.AppendHistory(ctx, key, turn); err != nil {
		e.logger.Warn("failed to append history",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
