package notify

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"

	"github.com/wesm/github-issue-chat/internal/models"
)

// Notifier delivers a new-issue notification. Deliver reports false when the
// notification was a duplicate and nothing was delivered.
type Notifier interface {
	Deliver(ctx context.Context, n *models.Notification) (bool, error)
}

// Journal records notifications and rejects duplicates
type Journal interface {
	SaveNotification(ctx context.Context, n *models.Notification) (bool, error)
}

var (
	bellPrefix = color.New(color.FgHiYellow).Sprint("\U0001F514")
	repoColor  = color.New(color.FgHiCyan).SprintFunc()
	urlColor   = color.New(color.FgHiBlue).SprintFunc()
)

// ConsoleNotifier writes notifications to a terminal
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a console notifier writing to out
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Deliver(_ context.Context, n *models.Notification) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "%s [%s] new issue in %s #%d: %s %s\n",
		bellPrefix, n.CallerID, repoColor(n.Repository), n.IssueNumber, n.Title, urlColor(n.URL))
	if err != nil {
		return false, fmt.Errorf("failed to write notification: %w", err)
	}
	return true, nil
}

// JournalNotifier records each notification in a journal and forwards only
// the first occurrence to next.
type JournalNotifier struct {
	journal Journal
	next    Notifier
}

// NewJournalNotifier wraps next with duplicate suppression
func NewJournalNotifier(journal Journal, next Notifier) *JournalNotifier {
	return &JournalNotifier{journal: journal, next: next}
}

func (j *JournalNotifier) Deliver(ctx context.Context, n *models.Notification) (bool, error) {
	inserted, err := j.journal.SaveNotification(ctx, n)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}
	return j.next.Deliver(ctx, n)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newID generates a new ULID string
func newID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
