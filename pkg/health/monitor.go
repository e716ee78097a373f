package health

import (
	"context"
	"time"

	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
)

// Monitor runs a Checker periodically and reports its status to the
// metrics health registry
type Monitor struct {
	checker Checker
	config  Config
	status  *Status
}

// NewMonitor creates a monitor for checker
func NewMonitor(checker Checker, config Config) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Retries < 1 {
		config.Retries = 1
	}
	return &Monitor{
		checker: checker,
		config:  config,
		status:  NewStatus(),
	}
}

// Run checks immediately and then every Interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	logger := log.WithComponent("health")

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		wasHealthy := m.status.Healthy
		result := m.checkOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if wasHealthy != m.status.Healthy {
			logger.Warn().
				Str("check", m.checker.Name()).
				Bool("healthy", m.status.Healthy).
				Str("message", result.Message).
				Msg("Health changed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) checkOnce(ctx context.Context) Result {
	checkCtx := ctx
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	result := m.checker.Check(checkCtx)
	m.status.Update(result, m.config)
	metrics.UpdateComponent(m.checker.Name(), m.status.Healthy, result.Message)
	return result
}

// Status returns the status after the last check. It must not be called
// concurrently with Run.
func (m *Monitor) Status() Status {
	return *m.status
}
