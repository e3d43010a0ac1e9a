// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/inclusion/app/services/watcher/handlers/v1/probegrp"
	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ardanlabs/inclusion/foundation/events"
	"github.com/ardanlabs/inclusion/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	Watcher *probe.Watcher
	Evts    *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pgh := probegrp.Handlers{
		Log:     cfg.Log,
		Watcher: cfg.Watcher,
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/status", pgh.Status)
	app.Handle(http.MethodPost, version, "/probe", pgh.Trigger)
	app.Handle(http.MethodGet, version, "/events", pgh.Events)
}
