package server

import (
	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/account"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/matching"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/notify"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/social"
)

// NewCommandRegistry builds every service on appCtx and registers their commands.
func NewCommandRegistry(appCtx *app.AppContext) *command.Registry {
	notifier := notify.NewService(appCtx)
	graph := social.NewService(appCtx, notifier)

	r := command.NewRegistry(appCtx.Sessions, appCtx.Logger)
	account.RegisterCommands(r, account.NewService(appCtx))
	social.RegisterCommands(r, graph)
	matching.RegisterCommands(r, matching.NewService(appCtx, graph, notifier))
	notify.RegisterCommands(r, notifier)
	return r
}

// NewCommandRegistrar exposes the command registry over gRPC.
func NewCommandRegistrar(appCtx *app.AppContext) Registrar {
	return command.NewRegistrar(command.NewServer(NewCommandRegistry(appCtx), appCtx.Logger))
}
