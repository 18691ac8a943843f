// Package notify polls subscribed repositories for new issues and delivers
// notifications about them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wesm/github-issue-chat/internal/models"
	"github.com/wesm/github-issue-chat/internal/registry"
)

const (
	// DefaultInterval is the time between polling cycles
	DefaultInterval = 300 * time.Second

	// DefaultWorkers is the number of subscribers fetched in parallel
	DefaultWorkers = 5
)

// IssueLister fetches issues created since a point in time
type IssueLister interface {
	ListIssuesSince(ctx context.Context, owner, name string, since time.Time) ([]*models.Issue, error)
}

// CycleResult summarizes one polling cycle
type CycleResult struct {
	Subscribers int
	Delivered   int
	Failed      int
}

// Poller periodically checks every enabled subscriber for new issues
type Poller struct {
	client   IssueLister
	registry *registry.Registry
	notifier Notifier
	interval time.Duration
	workers  int
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller
func New(client IssueLister, reg *registry.Registry, notifier Notifier, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:   client,
		registry: reg,
		notifier: notifier,
		interval: interval,
		workers:  DefaultWorkers,
		logger:   logger,
	}
}

// SetWorkers sets the number of parallel workers
func (p *Poller) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > 10 {
		workers = 10 // Cap at 10 to avoid overwhelming GitHub API
	}
	p.workers = workers
}

// Start runs the polling loop in the background until Stop is called or ctx
// is cancelled. Starting an already running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.done)
}

// Stop cancels the polling loop and waits for the current cycle to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run polls until ctx is cancelled. The full interval elapses between the
// end of one cycle and the start of the next.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("notification poller started", "interval", p.interval, "workers", p.workers)
	defer p.logger.Info("notification poller stopped")

	for {
		p.PollOnce(ctx)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// PollOnce runs a single cycle over every enabled subscriber. A failing
// subscriber is logged and does not affect the others.
func (p *Poller) PollOnce(ctx context.Context) CycleResult {
	subs := p.registry.Enabled()
	result := CycleResult{Subscribers: len(subs)}
	if len(subs) == 0 {
		return result
	}

	subsChan := make(chan models.Subscriber, len(subs))
	for _, sub := range subs {
		subsChan <- sub
	}
	close(subsChan)

	var wg sync.WaitGroup
	var resultMu sync.Mutex

	workers := p.workers
	if workers > len(subs) {
		workers = len(subs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for sub := range subsChan {
				if ctx.Err() != nil {
					return
				}

				delivered, err := p.pollSubscriber(ctx, sub)

				resultMu.Lock()
				result.Delivered += delivered
				if err != nil {
					result.Failed++
				}
				resultMu.Unlock()

				if err != nil {
					p.logger.Warn("failed to check subscriber for new issues",
						"caller", sub.CallerID, "repository", sub.FullName(), "error", err)
				}
			}
		}()
	}
	wg.Wait()

	p.logger.Debug("notification cycle finished",
		"subscribers", result.Subscribers, "delivered", result.Delivered, "failed", result.Failed)
	return result
}

// pollSubscriber reports issues created after the subscriber's watermark. The
// watermark only advances once the fetch and every delivery have succeeded.
func (p *Poller) pollSubscriber(ctx context.Context, sub models.Subscriber) (delivered int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while polling: %v", r)
		}
	}()

	since := p.registry.LastChecked(sub.CallerID)
	checkedAt := p.registry.Now()

	issues, err := p.client.ListIssuesSince(ctx, sub.Owner, sub.Repo, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list issues for %s: %w", sub.FullName(), err)
	}

	for _, issue := range issues {
		if issue.IsPullRequest || !issue.CreatedAt.After(since) {
			continue
		}

		n := &models.Notification{
			ID:          newID(checkedAt),
			CallerID:    sub.CallerID,
			Repository:  sub.FullName(),
			IssueNumber: issue.Number,
			Title:       issue.Title,
			URL:         issue.HTMLURL,
			CreatedAt:   issue.CreatedAt,
			NotifiedAt:  checkedAt,
		}
		ok, err := p.notifier.Deliver(ctx, n)
		if err != nil {
			return delivered, fmt.Errorf("failed to deliver notification for %s#%d: %w", sub.FullName(), issue.Number, err)
		}
		if ok {
			delivered++
			p.logger.Info("new issue notification",
				"caller", sub.CallerID, "repository", sub.FullName(), "issue", issue.Number, "title", issue.Title)
		}
	}

	p.registry.Advance(sub.CallerID, checkedAt)
	return delivered, nil
}
