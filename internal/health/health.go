// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mindmail/internal/logger"
)

// Pinger is anything whose reachability decides readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker wraps a healthcheck.Handler with the app's checks.
type Checker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

const (
	checkTimeout       = 2 * time.Second
	goroutineThreshold = 10000
)

// NewChecker builds a checker that is ready when every named pinger answers.
func NewChecker(pingers map[string]Pinger, log *zap.Logger) *Checker {
	hc := &Checker{
		health: healthcheck.NewHandler(),
		logger: logger.OrNop(log),
	}

	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(goroutineThreshold))
	for name, p := range pingers {
		hc.health.AddReadinessCheck(name, hc.pingCheck(name, p))
	}
	return hc
}

func (hc *Checker) pingCheck(name string, p Pinger) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			hc.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

func (hc *Checker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

func (hc *Checker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
