package collect

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// Poller runs a task on a fixed interval. Each tick launches the task
// without waiting for the previous one; in-flight calls are never aborted,
// overlapping completions are tolerated (later completion overwrites
// earlier). Failures are logged and retried on the next tick.
type Poller struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewPoller creates a poller; the first run fires immediately on Run.
func NewPoller(name string, interval time.Duration, task func(ctx context.Context) error) *Poller {
	return &Poller{name: name, interval: interval, task: task}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.launch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.launch(ctx)
		}
	}
}

func (p *Poller) launch(ctx context.Context) {
	go func() {
		if err := p.task(ctx); err != nil {
			logs.Warnf("%s poll failed: %v", p.name, err)
		}
	}()
}
