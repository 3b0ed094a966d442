package account

import (
	"context"

	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
)

// SessionView is returned by register and login.
type SessionView struct {
	Token string     `json:"token"`
	User  db.Profile `json:"user"`
}

func viewOf(s *session.Session) SessionView {
	return SessionView{Token: s.Token, User: s.User.Profile()}
}

// RegisterCommands attaches the account.* commands and the daily status hook.
func RegisterCommands(r *command.Registry, svc *Service) {
	r.Use(func(ctx context.Context, call *command.Call) error {
		_, err := svc.RefreshDailyStatus(ctx, call.Session)
		return err
	})

	r.HandlePublic("account.register", func(ctx context.Context, call *command.Call) (any, error) {
		var in RegisterInput
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		sess, err := svc.Register(ctx, in)
		if err != nil {
			return nil, err
		}
		return viewOf(sess), nil
	})

	r.HandlePublic("account.login", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		sess, err := svc.Login(ctx, in.Email, in.Password)
		if err != nil {
			return nil, err
		}
		return viewOf(sess), nil
	})

	r.Handle("account.logout", func(ctx context.Context, call *command.Call) (any, error) {
		if err := svc.Logout(ctx, call.Token); err != nil {
			return nil, err
		}
		return map[string]bool{"logged_out": true}, nil
	})

	r.Handle("account.me", func(ctx context.Context, call *command.Call) (any, error) {
		return svc.Me(ctx, call.Session)
	})

	r.Handle("account.update_profile", func(ctx context.Context, call *command.Call) (any, error) {
		var in ProfileInput
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.UpdateProfile(ctx, call.Session, in)
	})

	r.Handle("account.set_drinking", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			Value *bool `json:"value"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.SetDrinking(ctx, call.Session, in.Value)
	})

	r.Handle("account.search", func(ctx context.Context, call *command.Call) (any, error) {
		var in struct {
			Query string `json:"query"`
		}
		if err := call.Bind(&in); err != nil {
			return nil, err
		}
		return svc.Search(ctx, call.Session, in.Query)
	})
}
