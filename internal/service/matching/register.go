package matching

import (
	"context"

	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
)

// RegisterCommands attaches the matching.* commands.
func RegisterCommands(r *command.Registry, svc *Service) {
	target := func(call *command.Call) (string, error) {
		var in struct {
			UserID string `json:"user_id"`
		}
		err := call.Bind(&in)
		return in.UserID, err
	}

	r.Handle("matching.candidates", func(ctx context.Context, call *command.Call) (any, error) {
		return svc.Candidates(ctx, call.Session)
	})

	r.Handle("matching.send_like", func(ctx context.Context, call *command.Call) (any, error) {
		id, err := target(call)
		if err != nil {
			return nil, err
		}
		return svc.SendLike(ctx, call.Session, id)
	})

	r.Handle("matching.contact", func(ctx context.Context, call *command.Call) (any, error) {
		id, err := target(call)
		if err != nil {
			return nil, err
		}
		return svc.Contact(ctx, call.Session, id)
	})
}
