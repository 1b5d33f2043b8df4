// Package controller bootstraps the client session and owns the update
// channel lifecycle: it follows the authenticated flag of the session store
// and opens or tears down the channel as the flag flips.
package controller

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/api"
	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/metrics"
	"github.com/HerbHall/livefeed/internal/state"
	"github.com/HerbHall/livefeed/pkg/models"
)

// API is the subset of the server REST API used during bootstrap.
type API interface {
	Server(ctx context.Context) (models.Server, error)
	Devices(ctx context.Context) ([]models.Device, error)
	Session(ctx context.Context) (models.User, error)
}

// Feed is one update channel instance.
type Feed interface {
	Connect(ctx context.Context) error
	Close()
}

// FeedFactory creates a fresh update channel for an authenticated session.
type FeedFactory func() Feed

// Navigator is told when the session check fails and the user has to log in.
type Navigator interface {
	ToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) ToLogin(ctx context.Context) { f(ctx) }

// DeviceReplacer receives the full device list.
type DeviceReplacer interface {
	Replace(ctx context.Context, devices []models.Device)
}

// Subscriber is the bus view the controller needs.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// Deps holds the controller collaborators.
type Deps struct {
	API       API
	Session   *state.Session
	Devices   DeviceReplacer
	NewFeed   FeedFactory
	Navigator Navigator
	Bus       Subscriber
}

// Controller runs the bootstrap sequence on a single goroutine.
type Controller struct {
	deps   Deps
	logger *zap.Logger

	changed  chan struct{}
	teardown func()
}

// New creates a controller.
func New(deps Deps, logger *zap.Logger) *Controller {
	return &Controller{
		deps:    deps,
		logger:  logger,
		changed: make(chan struct{}, 1),
	}
}

// Run fetches server metadata, applies the current authenticated flag and
// then reacts to every flip of it until ctx is cancelled. The update
// channel is torn down before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	unsubscribe := c.deps.Bus.Subscribe(state.TopicSessionUser, func(context.Context, event.Event) {
		// Coalesce: Run re-reads the flag, so one pending signal is enough.
		select {
		case c.changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()
	defer c.stopFeed()

	c.fetchServer(ctx)

	authenticated := c.deps.Session.Authenticated()
	c.apply(ctx, authenticated)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("controller stopping", zap.String("component", "controller"))
			return nil
		case <-c.changed:
			now := c.deps.Session.Authenticated()
			if now == authenticated {
				continue
			}
			authenticated = now
			c.apply(ctx, now)
		}
	}
}

// Logout clears the session user, which tears the update channel down.
func (c *Controller) Logout(ctx context.Context) {
	c.deps.Session.SetUser(ctx, nil)
}

func (c *Controller) apply(ctx context.Context, authenticated bool) {
	c.stopFeed()
	if ctx.Err() != nil {
		return
	}
	c.logger.Info("session state",
		zap.String("component", "controller"),
		zap.Bool("authenticated", authenticated),
	)
	if authenticated {
		c.startSession(ctx)
		return
	}
	c.checkSession(ctx)
}

func (c *Controller) fetchServer(ctx context.Context) {
	server, err := c.deps.API.Server(ctx)
	if err != nil {
		c.requestFailed("server", err)
		return
	}
	metrics.BootstrapRequests.WithLabelValues("server", metrics.ResultOK).Inc()
	c.deps.Session.SetServer(ctx, server)
	c.logger.Info("server info loaded", zap.String("version", server.Version))
}

func (c *Controller) startSession(ctx context.Context) {
	devices, err := c.deps.API.Devices(ctx)
	if err != nil {
		c.requestFailed("devices", err)
	} else {
		metrics.BootstrapRequests.WithLabelValues("devices", metrics.ResultOK).Inc()
		c.deps.Devices.Replace(ctx, devices)
		c.logger.Info("devices loaded", zap.Int("count", len(devices)))
	}

	feed := c.deps.NewFeed()
	if err := feed.Connect(ctx); err != nil {
		c.logger.Error("update channel connect failed", zap.Error(err))
		return
	}
	c.teardown = feed.Close
}

func (c *Controller) checkSession(ctx context.Context) {
	user, err := c.deps.API.Session(ctx)
	if err != nil {
		c.requestFailed("session", err)
		if ctx.Err() == nil {
			c.deps.Navigator.ToLogin(ctx)
		}
		return
	}
	metrics.BootstrapRequests.WithLabelValues("session", metrics.ResultOK).Inc()
	c.deps.Session.SetUser(ctx, &user)
}

func (c *Controller) stopFeed() {
	if c.teardown == nil {
		return
	}
	c.teardown()
	c.teardown = nil
}

func (c *Controller) requestFailed(endpoint string, err error) {
	metrics.BootstrapRequests.WithLabelValues(endpoint, metrics.ResultError).Inc()
	level := c.logger.Warn
	if errors.Is(err, api.ErrUnexpectedStatus) {
		level = c.logger.Debug
	}
	level("bootstrap request failed",
		zap.String("component", "controller"),
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)
}
