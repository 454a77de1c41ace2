// Package agent supervises the bot's long-running actions.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lisanmuaddib/raider-go/pkg/actions"
)

type Config struct {
	Logger *logrus.Logger
}

type Agent struct {
	logger  *logrus.Logger
	mu      sync.RWMutex
	actions map[string]actions.Action
	order   []string
}

func New(config Config) *Agent {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Agent{
		logger:  config.Logger,
		actions: make(map[string]actions.Action),
	}
}

// RegisterAction adds a new action to the agent
func (a *Agent) RegisterAction(action actions.Action) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := action.Name()
	if _, exists := a.actions[name]; exists {
		return fmt.Errorf("action %s already registered", name)
	}

	a.actions[name] = action
	a.order = append(a.order, name)
	return nil
}

// Run starts every registered action and blocks until all of them return.
// The first failing action stops the rest. Cancellation is not an error.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.RLock()
	running := make([]actions.Action, 0, len(a.order))
	for _, name := range a.order {
		running = append(running, a.actions[name])
	}
	a.mu.RUnlock()

	if len(running) == 0 {
		return fmt.Errorf("no actions registered")
	}

	a.logger.WithField("actions", len(running)).Info("Starting agent with registered actions")

	g, gctx := errgroup.WithContext(ctx)
	for _, action := range running {
		action := action
		g.Go(func() error {
			log := a.logger.WithField("action", action.Name())
			log.Info("Starting action")

			err := action.Execute(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Action failed")
				return fmt.Errorf("action %s failed: %w", action.Name(), err)
			}
			log.Info("Action stopped")
			return nil
		})
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-gctx.Done()
		a.stopAll(running)
	}()

	err := g.Wait()
	<-stopped
	return err
}

func (a *Agent) stopAll(running []actions.Action) {
	for _, action := range running {
		a.logger.WithField("action", action.Name()).Debug("Stopping action")
		action.Stop()
	}
}
