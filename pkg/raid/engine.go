// Package raid runs engagement raids: it owns the set of active raids, drives
// one monitoring loop per raid and applies the completion, expiry and
// cancellation transitions.
package raid

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/dashboard"
	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
)

// History persists finished raids.
type History interface {
	Record(ctx context.Context, summary Summary) error
}

// Metrics receives raid lifecycle events.
type Metrics interface {
	RaidStarted()
	RaidFinished(status string)
	DashboardFailed()
	ActiveRaids(n int)
}

type nopMetrics struct{}

func (nopMetrics) RaidStarted()        {}
func (nopMetrics) RaidFinished(string) {}
func (nopMetrics) DashboardFailed()    {}
func (nopMetrics) ActiveRaids(int)     {}

// Interaction is a button press routed back from the chat.
type Interaction struct {
	ID     string
	Data   string
	ChatID int64
	UserID int64
}

// EngineConfig wires an Engine. Source and Gateway are required.
type EngineConfig struct {
	Source  postmetrics.Source
	Gateway chat.Gateway
	Logger  *logrus.Logger
	Config  Config
	History History
	Metrics Metrics
	Now     func() time.Time
}

// Engine owns every active raid.
type Engine struct {
	source   postmetrics.Source
	gateway  chat.Gateway
	renderer dashboard.Renderer
	logger   *logrus.Logger
	cfg      Config
	history  History
	metrics  Metrics
	now      func() time.Time

	reg *registry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine validates the wiring and returns an idle engine.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("metrics source is required")
	}
	if config.Gateway == nil {
		return nil, fmt.Errorf("chat gateway is required")
	}
	if config.Config.Duration <= 0 || config.Config.UpdateInterval <= 0 {
		return nil, fmt.Errorf("raid duration and update interval must be positive")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Metrics == nil {
		config.Metrics = nopMetrics{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		source:   config.Source,
		gateway:  config.Gateway,
		renderer: dashboard.NewRenderer(config.Config.BotName),
		logger:   config.Logger,
		cfg:      config.Config,
		history:  config.History,
		metrics:  config.Metrics,
		now:      config.Now,
		reg:      newRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start validates the request, posts the first dashboard and launches the
// raid's monitoring loop. The raid is active by the time Start returns.
func (e *Engine) Start(ctx context.Context, chatID int64, postURL string, targets Targets) (view View, err error) {
	if e.ctx.Err() != nil {
		return View{}, ErrEngineStopped
	}
	if err := targets.Validate(); err != nil {
		return View{}, err
	}
	postID, ok := e.source.ResolveID(postURL)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrInvalidURL, postURL)
	}
	if !e.source.Validate(ctx, postID) {
		return View{}, fmt.Errorf("%w: %s", ErrPostUnavailable, postID)
	}

	now := e.now()
	r := &Raid{
		id:        uuid.NewString(),
		key:       Key{ChatID: chatID, PostID: postID},
		postURL:   postURL,
		targets:   targets,
		startedAt: now,
		endsAt:    now.Add(e.cfg.Duration),
		status:    StatusPending,
		stop:      make(chan struct{}),
	}
	log := e.raidLogger(r)

	// Runs after r.mu is released.
	var failed *Summary
	defer func() {
		if failed != nil {
			e.record(ctx, r, *failed)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !e.reg.reserve(r) {
		return View{}, fmt.Errorf("%w: %s", ErrRaidExists, r.key)
	}
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Raid start panicked, discarding raid")
			failed = e.discardLocked(r)
			view, err = View{}, fmt.Errorf("%w: %v", ErrStartFailed, p)
		}
	}()

	r.recordLocked(e.source.Poll(ctx, postID))
	ref, sendErr := e.gateway.Send(ctx, chatID, e.renderer.Render(r.viewLocked().dashboardState(), e.now()))
	if sendErr != nil {
		failed = e.discardLocked(r)
		e.metrics.DashboardFailed()
		log.WithError(sendErr).Error("Failed to post initial dashboard, discarding raid")
		return View{}, fmt.Errorf("%w: %v", ErrDashboardUnavailable, sendErr)
	}
	r.dashboardRef = ref
	r.status = StatusActive

	e.metrics.RaidStarted()
	e.metrics.ActiveRaids(e.reg.len())
	log.WithFields(logrus.Fields{
		"ends_at": r.endsAt,
		"targets": r.targets,
	}).Info("Raid started")

	e.wg.Add(1)
	go e.monitor(r)

	return r.viewLocked(), nil
}

// monitor is the raid's loop. It runs a cycle immediately, then one per
// update interval, until the raid reaches a terminal status or the engine
// shuts down. The raid is always deregistered on exit.
func (e *Engine) monitor(r *Raid) {
	defer e.wg.Done()
	defer func() {
		e.reg.remove(r)
		e.metrics.ActiveRaids(e.reg.len())
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-e.ctx.Done():
			return
		case <-timer.C:
		}
		if !e.cycle(r) {
			return
		}
		timer.Reset(e.cfg.UpdateInterval)
	}
}

// cycle runs one monitoring step and reports whether the loop should continue.
// A panic ends the raid as an implicit cancellation without a final message.
func (e *Engine) cycle(r *Raid) (keepGoing bool) {
	defer func() {
		if p := recover(); p != nil {
			e.raidLogger(r).WithField("panic", p).Error("Raid monitor failed, cancelling raid")
			e.abandon(r)
			keepGoing = false
		}
	}()

	var finished *Summary
	defer func() {
		if finished != nil {
			e.record(e.ctx, r, *finished)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusActive {
		return false
	}
	if !e.now().Before(r.endsAt) {
		summary := e.finishLocked(e.ctx, r, StatusExpired)
		finished = &summary
		return false
	}

	r.recordLocked(e.source.Poll(e.ctx, r.key.PostID))
	if r.targets.MetBy(r.current) {
		summary := e.finishLocked(e.ctx, r, StatusCompleted)
		finished = &summary
		return false
	}

	r.updates++
	if err := e.replaceDashboardLocked(e.ctx, r); err != nil {
		e.raidLogger(r).WithError(err).Warn("Dashboard update failed, retrying next cycle")
	}
	return true
}

// abandon stops a raid whose loop failed. No messages are sent.
func (e *Engine) abandon(r *Raid) {
	r.mu.Lock()
	if r.status.Terminal() {
		// A finish that panicked part way still has to release the key.
		e.reg.remove(r)
		r.mu.Unlock()
		return
	}
	r.terminateLocked(StatusCancelled)
	e.reg.remove(r)
	e.metrics.RaidFinished(string(StatusCancelled))
	e.metrics.ActiveRaids(e.reg.len())
	summary := r.summaryLocked(e.now())
	r.mu.Unlock()

	e.record(e.ctx, r, summary)
}

// discardLocked fails a raid that never became active and releases its key.
func (e *Engine) discardLocked(r *Raid) *Summary {
	if !r.status.Terminal() {
		r.terminateLocked(StatusFailed)
		e.metrics.RaidFinished(string(StatusFailed))
	}
	e.reg.remove(r)
	summary := r.summaryLocked(e.now())
	return &summary
}

// replaceDashboardLocked deletes the live dashboard and posts a fresh one.
// If the delete fails the old message is kept and nothing new is sent, so a
// raid never has two live dashboards.
func (e *Engine) replaceDashboardLocked(ctx context.Context, r *Raid) error {
	if err := e.gateway.Delete(ctx, r.key.ChatID, r.dashboardRef); err != nil {
		return fmt.Errorf("delete dashboard %d: %w", r.dashboardRef, err)
	}
	r.dashboardRef = 0

	ref, err := e.gateway.Send(ctx, r.key.ChatID, e.renderer.Render(r.viewLocked().dashboardState(), e.now()))
	if err != nil {
		e.metrics.DashboardFailed()
		return fmt.Errorf("send dashboard: %w", err)
	}
	r.dashboardRef = ref
	return nil
}

// finishLocked applies a terminal transition: remove the working dashboard,
// emit the one-shot final message, then deregister. Callers hold r.mu and
// have checked the raid is active, so this runs at most once per raid. The
// returned summary is recorded by the caller once r.mu is released.
func (e *Engine) finishLocked(ctx context.Context, r *Raid, status Status) Summary {
	log := e.raidLogger(r).WithField("status", status)

	r.terminateLocked(status)

	if err := e.gateway.Delete(ctx, r.key.ChatID, r.dashboardRef); err != nil {
		log.WithError(err).Warn("Failed to delete dashboard")
	}
	r.dashboardRef = 0

	now := e.now()
	state := r.viewLocked().dashboardState()
	var msg chat.Message
	switch status {
	case StatusCompleted:
		msg = e.renderer.Completed(state, now)
	case StatusExpired:
		msg = e.renderer.Expired(state, now)
	default:
		msg = e.renderer.Cancelled()
	}
	if _, err := e.gateway.Send(ctx, r.key.ChatID, msg); err != nil {
		log.WithError(err).Error("Failed to send final raid message")
	}

	e.reg.remove(r)
	e.metrics.RaidFinished(string(status))
	e.metrics.ActiveRaids(e.reg.len())

	log.WithFields(logrus.Fields{
		"updates":  r.updates,
		"likes":    r.current.Likes,
		"comments": r.current.Comments,
		"reposts":  r.current.Reposts,
	}).Info("Raid finished")

	return r.summaryLocked(now)
}

// record hands a finished raid to the history store. Callers must not hold r.mu.
func (e *Engine) record(ctx context.Context, r *Raid, summary Summary) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(ctx, summary); err != nil {
		e.raidLogger(r).WithError(err).Warn("Failed to record raid history")
	}
}

// Cancel stops one raid when postID is set, otherwise every raid in the chat.
// It returns how many raids were cancelled.
func (e *Engine) Cancel(ctx context.Context, chatID int64, postID string) (int, error) {
	var candidates []*Raid
	if postID != "" {
		if r, ok := e.reg.get(Key{ChatID: chatID, PostID: postID}); ok {
			candidates = append(candidates, r)
		}
	} else {
		candidates = e.reg.inChat(&chatID)
	}

	cancelled := 0
	for _, r := range candidates {
		if e.cancelRaid(ctx, r) {
			cancelled++
		}
	}
	if cancelled == 0 {
		return 0, ErrRaidNotFound
	}
	return cancelled, nil
}

func (e *Engine) cancelRaid(ctx context.Context, r *Raid) bool {
	summary, ok := func() (Summary, bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.status != StatusActive {
			return Summary{}, false
		}
		return e.finishLocked(ctx, r, StatusCancelled), true
	}()
	if !ok {
		return false
	}
	e.record(ctx, r, summary)
	return true
}

// Refresh re-polls a raid and replaces its dashboard out of turn. The loop's
// own schedule is unaffected. A panic while polling or posting fails the
// refresh and leaves the raid running.
func (e *Engine) Refresh(ctx context.Context, key Key) (err error) {
	r, ok := e.reg.get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRaidNotFound, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusActive {
		return fmt.Errorf("%w: %s", ErrRaidNotFound, key)
	}
	defer func() {
		if p := recover(); p != nil {
			e.raidLogger(r).WithField("panic", p).Error("Refresh panicked")
			err = fmt.Errorf("%w: %v", ErrRefreshFailed, p)
		}
	}()

	r.recordLocked(e.source.Poll(ctx, key.PostID))
	if err := e.replaceDashboardLocked(ctx, r); err != nil {
		e.raidLogger(r).WithError(err).Warn("Refresh failed")
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return nil
}

// HandleButton routes a dashboard button press. Data has the form
// "<action>_<raid key>". It returns the notice to show the user.
func (e *Engine) HandleButton(ctx context.Context, in Interaction) (string, error) {
	action, rawKey, found := strings.Cut(in.Data, "_")
	if !found {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, in.Data)
	}
	key, err := ParseKey(rawKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownAction, err)
	}
	if in.ChatID != 0 && in.ChatID != key.ChatID {
		return "", fmt.Errorf("%w: %s", ErrRaidNotFound, key)
	}

	e.logger.WithFields(logrus.Fields{
		"action":   action,
		"raid_key": key.String(),
		"user_id":  in.UserID,
	}).Debug("Handling raid button")

	switch action {
	case dashboard.ActionRefresh:
		if err := e.Refresh(ctx, key); err != nil {
			return "", err
		}
		return "Raid status refreshed.", nil
	case dashboard.ActionCancel:
		if _, err := e.Cancel(ctx, key.ChatID, key.PostID); err != nil {
			return "", err
		}
		return "Raid cancelled successfully.", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// Count returns the number of active raids, in one chat or overall.
func (e *Engine) Count(chatID *int64) int {
	return len(e.List(chatID))
}

// List returns snapshots of the active raids, oldest first.
func (e *Engine) List(chatID *int64) []View {
	var views []View
	for _, r := range e.reg.inChat(chatID) {
		if v := r.View(); v.Status == StatusActive {
			views = append(views, v)
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].StartedAt.Equal(views[j].StartedAt) {
			return views[i].Key.String() < views[j].Key.String()
		}
		return views[i].StartedAt.Before(views[j].StartedAt)
	})
	return views
}

// Shutdown stops every loop and waits for them to exit. Raids are dropped
// without final messages.
func (e *Engine) Shutdown() {
	e.cancel()
	e.wg.Wait()
	e.logger.Info("Raid engine stopped")
}

func (e *Engine) raidLogger(r *Raid) *logrus.Entry {
	return e.logger.WithFields(logrus.Fields{
		"raid_id":  r.id,
		"raid_key": r.key.String(),
		"chat_id":  r.key.ChatID,
		"post_id":  r.key.PostID,
	})
}
