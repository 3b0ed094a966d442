// Package command maps named user actions to service operations and carries
// them over a single gRPC method.
//
// A command receives its arguments as JSON and, unless registered as public,
// the session resolved from the caller's bearer token.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
)

// Handler runs one command.
type Handler func(ctx context.Context, call *Call) (any, error)

// Hook runs before every command that carries a session.
type Hook func(ctx context.Context, call *Call) error

// Call is one invocation of a command.
type Call struct {
	Name  string
	Token string
	Args  json.RawMessage
	// Session is nil for public commands invoked without a token.
	Session *session.Session
}

// Bind decodes the call arguments into dst. Missing arguments leave dst untouched.
func (c *Call) Bind(dst any) error {
	if len(c.Args) == 0 || string(c.Args) == "null" {
		return nil
	}
	if err := json.Unmarshal(c.Args, dst); err != nil {
		return svcErr.InvalidArg(fmt.Sprintf("invalid arguments for %s: %v", c.Name, err))
	}
	return nil
}

type entry struct {
	handler Handler
	public  bool
}

// Registry holds the command table.
type Registry struct {
	sessions session.Store
	logger   *slog.Logger
	handlers map[string]entry
	hooks    []Hook
}

func NewRegistry(sessions session.Store, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: sessions,
		logger:   logger,
		handlers: make(map[string]entry),
	}
}

// Handle registers a command that requires a logged-in session.
func (r *Registry) Handle(name string, h Handler) {
	r.add(name, entry{handler: h})
}

// HandlePublic registers a command that runs without a session.
func (r *Registry) HandlePublic(name string, h Handler) {
	r.add(name, entry{handler: h, public: true})
}

// Use appends a hook run before each session-bearing command.
func (r *Registry) Use(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Names lists the registered commands in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Dispatch resolves the session for token and runs the named command.
func (r *Registry) Dispatch(ctx context.Context, name, token string, args json.RawMessage) (any, error) {
	e, ok := r.handlers[name]
	if !ok {
		return nil, svcErr.InvalidArg(fmt.Sprintf("unknown command %q", name))
	}

	call := &Call{Name: name, Token: token, Args: args}
	if !e.public || token != "" {
		sess, err := r.sessions.Load(ctx, token)
		switch {
		case errors.Is(err, session.ErrNoSession):
			if !e.public {
				return nil, svcErr.ErrUnauthenticated
			}
		case err != nil:
			return nil, err
		default:
			call.Session = sess
		}
	}

	if call.Session != nil {
		for _, h := range r.hooks {
			if err := h(ctx, call); err != nil {
				return nil, err
			}
		}
	}

	start := time.Now()
	out, err := e.handler(ctx, call)
	if err != nil {
		r.logger.Debug("command failed", "command", name, "err", err, "took", time.Since(start))
		return nil, err
	}
	r.logger.Debug("command handled", "command", name, "took", time.Since(start))
	return out, nil
}

func (r *Registry) add(name string, e entry) {
	if _, dup := r.handlers[name]; dup {
		panic("command: duplicate registration of " + name)
	}
	r.handlers[name] = e
}
