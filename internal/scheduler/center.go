package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/logger"
)

// TriggerCenter is the platform layer that owns timed notifications.
// Remove and RemoveAll are safe to call for ids that are not pending.
type TriggerCenter interface {
	Add(t Trigger) error
	Remove(ids ...string)
	RemoveAll()
	Pending() []Trigger
}

// FireFunc receives a trigger when it fires.
type FireFunc func(Trigger)

var errCenterStopped = errors.New("trigger center stopped")

type pendingTrigger struct {
	trigger Trigger
	next    time.Time
	timer   *time.Timer
}

// TimerCenter is an in-process TriggerCenter backed by time.AfterFunc.
// Triggers only fire while the process runs; Scheduler.Reconcile covers the
// rest.
type TimerCenter struct {
	mu      sync.Mutex
	pending map[string]*pendingTrigger
	fire    FireFunc
	clock   clock.Clock
	logger  *zap.Logger
	stopped bool
}

func NewTimerCenter(clk clock.Clock, log *zap.Logger) *TimerCenter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TimerCenter{
		pending: make(map[string]*pendingTrigger),
		clock:   clk,
		logger:  logger.OrNop(log),
	}
}

// OnFire sets the function called when a trigger fires.
func (c *TimerCenter) OnFire(fn FireFunc) {
	c.mu.Lock()
	c.fire = fn
	c.mu.Unlock()
}

// Add registers t, replacing any pending trigger with the same id. A one-shot
// trigger whose time has passed fires right away.
func (c *TimerCenter) Add(t Trigger) error {
	if t.ID == "" {
		return errors.New("trigger id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return errCenterStopped
	}
	c.removeLocked(t.ID)

	now := c.clock.Now()
	next, ok := t.NextFire(now)
	if !ok {
		next = now
	}
	c.armLocked(t, next)
	return nil
}

func (c *TimerCenter) armLocked(t Trigger, next time.Time) {
	p := &pendingTrigger{trigger: t, next: next}
	delay := max(next.Sub(c.clock.Now()), 0)
	p.timer = time.AfterFunc(delay, func() { c.fired(p) })
	c.pending[t.ID] = p
	c.logger.Debug("trigger armed", zap.String("id", t.ID), zap.Time("next", next), zap.Bool("repeats", t.Repeats))
}

func (c *TimerCenter) fired(p *pendingTrigger) {
	c.mu.Lock()
	if cur, ok := c.pending[p.trigger.ID]; !ok || cur != p {
		c.mu.Unlock()
		return
	}
	if next, ok := p.trigger.NextFire(p.next); ok && p.trigger.Repeats {
		c.armLocked(p.trigger, next)
	} else {
		delete(c.pending, p.trigger.ID)
	}
	fire := c.fire
	c.mu.Unlock()

	if fire != nil {
		fire(p.trigger)
	}
}

// Remove cancels the pending triggers with the given ids.
func (c *TimerCenter) Remove(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.removeLocked(id)
	}
}

func (c *TimerCenter) removeLocked(id string) {
	if p, ok := c.pending[id]; ok {
		p.timer.Stop()
		delete(c.pending, id)
	}
}

// RemoveAll cancels every pending trigger.
func (c *TimerCenter) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pending {
		c.removeLocked(id)
	}
}

// Pending lists pending triggers, soonest first.
func (c *TimerCenter) Pending() []Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()

	ps := make([]*pendingTrigger, 0, len(c.pending))
	for _, p := range c.pending {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].next.Before(ps[j].next) })

	out := make([]Trigger, len(ps))
	for i, p := range ps {
		out[i] = p.trigger
	}
	return out
}

// Stop cancels everything and refuses new triggers.
func (c *TimerCenter) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pending {
		c.removeLocked(id)
	}
	c.stopped = true
}
