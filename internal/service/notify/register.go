package notify

import (
	"context"

	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
)

// RegisterCommands attaches the notifications.* commands.
func RegisterCommands(r *command.Registry, svc *Service) {
	// without page_token or limit the whole inbox is returned
	r.Handle("notifications.list", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			PageToken *string `json:"page_token"`
			Limit     int     `json:"limit"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		if in.PageToken == nil && in.Limit == 0 {
			return svc.ListFor(ctx, call.Session.UserID)
		}
		return svc.ListPage(ctx, call.Session.UserID, in.PageToken, in.Limit)
	})

	r.Handle("notifications.mark_read", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			ID string `json:"id"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.MarkRead(ctx, call.Session, in.ID)
	})

	r.Handle("notifications.mark_all_read", func(ctx context.Context, call *command.Call) (any, error) {
		n, err := svc.MarkAllRead(ctx, call.Session)
		if err != nil {
			return nil, err
		}
		return map[string]int{"marked": n}, nil
	})

	r.Handle("notifications.unread_count", func(ctx context.Context, call *command.Call) (any, error) {
		n, err := svc.UnreadCount(ctx, call.Session.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"unread": n}, nil
	})
}
