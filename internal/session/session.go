// Package session owns the per-key stateful actors. The same session key
// always resolves to the same actor instance, and each actor serializes its
// tool calls: one call runs to completion before the next is accepted.
package session

import (
	"context"
	"sync"

	"herald-api/internal/metrics"
	"herald-api/internal/tools"

	"go.uber.org/zap"
)

// Actor holds one initialized tool registry for a session key. The
// credential is attached at construction and read-only for the actor's
// lifetime; it is never persisted beyond the connection.
type Actor struct {
	key        string
	credential string
	dispatcher *tools.Dispatcher
	log        *zap.SugaredLogger

	// mu serializes tool calls so no two in-flight calls share the actor.
	mu    sync.Mutex
	ready bool
}

// init transitions the actor from uninitialized to ready. Runs exactly once,
// at first resolution of the key, before any call is routed.
func (a *Actor) init(dispatcher *tools.Dispatcher) {
	a.dispatcher = dispatcher
	a.ready = true
}

func (a *Actor) Key() string { return a.key }

// Credential returns the opaque bearer token the actor was created with.
func (a *Actor) Credential() string { return a.credential }

// Tools returns the actor's registered tool table.
func (a *Actor) Tools() []tools.Definition {
	return tools.Definitions()
}

// Dispatch routes one tool call through the actor's pipeline. Calling before
// the actor is ready is a programmer error: initialization always runs
// before a call can be routed, so this panics rather than degrading.
func (a *Actor) Dispatch(ctx context.Context, call tools.CallRequest) tools.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		panic("session actor dispatched before initialization")
	}

	a.log.Infow("Dispatching tool call", "tool", call.Name)
	return a.dispatcher.Dispatch(ctx, call)
}

// Registry resolves session keys to live actor instances.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*Actor

	newDispatcher func() *tools.Dispatcher
	log           *zap.SugaredLogger
}

func NewRegistry(newDispatcher func() *tools.Dispatcher, log *zap.SugaredLogger) *Registry {
	return &Registry{
		actors:        make(map[string]*Actor),
		newDispatcher: newDispatcher,
		log:           log,
	}
}

// Resolve returns the actor for key, constructing and initializing it on
// first resolution. The credential is attached only at construction time;
// later resolutions of the same key keep the original.
func (r *Registry) Resolve(key, credential string) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actor, ok := r.actors[key]; ok {
		return actor
	}

	actor := &Actor{
		key:        key,
		credential: credential,
		log:        r.log.With("session_key", key),
	}
	actor.init(r.newDispatcher())
	r.actors[key] = actor

	metrics.SessionsCreated.Inc()
	r.log.Infow("Session actor created", "session_key", key)
	return actor
}

// Len reports how many actors have been constructed.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}
