// Package probegrp maintains the group of handlers for probe access.
package probegrp

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ardanlabs/inclusion/business/sys/validate"
	v1 "github.com/ardanlabs/inclusion/business/web/v1"
	"github.com/ardanlabs/inclusion/foundation/events"
	"github.com/ardanlabs/inclusion/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of probe endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Watcher *probe.Watcher
	WS      websocket.Upgrader
	Evts    *events.Events
}

// Status returns the watcher's verdict counters and recent run history.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := h.Watcher.Status()

	return web.Respond(ctx, w, toStatus(status), http.StatusOK)
}

// Trigger executes a verification run right away and responds with the
// outcome. The optional request document overrides the configured transfer
// for this run only.
func (h Handlers) Trigger(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nr NewRun
	if err := web.Decode(r, &nr); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if err := validate.Check(nr); err != nil {
		return err
	}

	var value *big.Int
	if nr.Value != "" {
		v, err := probe.ParseEther(nr.Value)
		if err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		value = v
	}

	var recipient *common.Address
	if nr.To != "" {
		to := common.HexToAddress(nr.To)
		recipient = &to
	}

	result := h.Watcher.Trigger(ctx, value, recipient)

	return web.Respond(ctx, w, toRunResult(result), http.StatusOK)
}

// Events handles a web socket to provide event lines to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Subscribe(v.TraceID)
	defer h.Evts.Unsubscribe(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
