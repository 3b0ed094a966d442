package social

import (
	"context"

	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
)

type targetArgs struct {
	UserID string `json:"user_id"`
}

// userOrSelf returns the user_id argument, defaulting to the caller.
func userOrSelf(call *command.Call) (string, error) {
	var in targetArgs
	if err := call.Bind(&in); err != nil {
		return "", err
	}
	if in.UserID == "" {
		return call.Session.UserID, nil
	}
	return in.UserID, nil
}

// RegisterCommands attaches the social.* commands.
func RegisterCommands(r *command.Registry, svc *Service) {
	r.Handle("social.request_follow", func(ctx context.Context, call *command.Call) (any, error) {
		var in targetArgs
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.RequestFollow(ctx, call.Session, in.UserID)
	})

	r.Handle("social.respond", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			FollowID string          `json:"follow_id"`
			Decision db.FollowStatus `json:"decision"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.RespondToFollow(ctx, call.Session, in.FollowID, in.Decision)
	})

	r.Handle("social.unfollow", func(ctx context.Context, call *command.Call) (any, error) {
		var in targetArgs
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		if err := svc.Unfollow(ctx, call.Session, in.UserID); err != nil {
			return nil, err
		}
		return map[string]bool{"unfollowed": true}, nil
	})

	r.Handle("social.followers", func(ctx context.Context, call *command.Call) (any, error) {
		id, err := userOrSelf(call)
		if err != nil {
			return nil, err
		}
		return svc.Followers(ctx, id)
	})

	r.Handle("social.following", func(ctx context.Context, call *command.Call) (any, error) {
		id, err := userOrSelf(call)
		if err != nil {
			return nil, err
		}
		return svc.Following(ctx, id)
	})

	r.Handle("social.pending", func(ctx context.Context, call *command.Call) (any, error) {
		return svc.PendingRequests(ctx, call.Session.UserID)
	})

	r.Handle("social.mutual", func(ctx context.Context, call *command.Call) (any, error) {
		return svc.MutualFollows(ctx, call.Session.UserID)
	})
}
