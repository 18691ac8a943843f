// Package interpreter turns free-text chat messages into GitHub issue
// operations and renders the results as text.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/github-issue-chat/internal/api"
	"github.com/wesm/github-issue-chat/internal/models"
	"github.com/wesm/github-issue-chat/internal/registry"
)

// MaxListedIssues caps the number of issues rendered in a listing
const MaxListedIssues = 8

// ProcessingError is returned to the caller when handling a message panics
const ProcessingError = "Error processing your request"

// IssueService is the subset of the GitHub client the interpreter dispatches to
type IssueService interface {
	ListIssues(ctx context.Context, owner, name string, filter api.IssueFilter) ([]*models.Issue, error)
	GetIssue(ctx context.Context, owner, name string, number int) (*models.Issue, error)
	CreateIssue(ctx context.Context, owner, name string, input api.NewIssue) (*models.Issue, error)
	UpdateIssue(ctx context.Context, owner, name string, number int, update api.IssueUpdate) (*models.Issue, error)
	AddComment(ctx context.Context, owner, name string, number int, body string) (*models.Comment, error)
}

// RepositoryResolver looks up a repository's canonical name
type RepositoryResolver interface {
	GetRepository(ctx context.Context, owner, name string) (*models.Repository, error)
}

// Options configures an Interpreter
type Options struct {
	DefaultRepository models.Repository
	// PollInterval is only used to tell subscribers how often they are checked
	PollInterval time.Duration
	// Resolver, when set, verifies repositories before subscribing to them
	Resolver RepositoryResolver
	Logger   *slog.Logger
}

// Interpreter dispatches chat messages to the GitHub client
type Interpreter struct {
	issues   IssueService
	registry *registry.Registry
	opts     Options
	logger   *slog.Logger
}

// New creates an interpreter
func New(issues IssueService, reg *registry.Registry, opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		issues:   issues,
		registry: reg,
		opts:     opts,
		logger:   logger,
	}
}

// Handle interprets one message from callerID and returns the response text.
// It never fails: errors are rendered into the response.
func (in *Interpreter) Handle(ctx context.Context, callerID, message string) (response string) {
	kind := Classify(message)

	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("panic handling chat message", "caller", callerID, "command", kind, "panic", r)
			response = ProcessingError
		}
	}()

	var err error
	switch kind {
	case KindListIssues:
		response, err = in.listIssues(ctx, message)
	case KindCreateIssue:
		response, err = in.createIssue(ctx, message)
	case KindUpdateIssue:
		response, err = in.updateIssue(ctx, message)
	case KindAddComment:
		response, err = in.addComment(ctx, message)
	case KindNotifications:
		response, err = in.manageNotifications(ctx, callerID, message)
	case KindGetIssue:
		response, err = in.getIssue(ctx, message)
	default:
		response = helpText(in.opts.DefaultRepository)
	}

	if err != nil {
		in.logger.Warn("chat command failed", "caller", callerID, "command", kind, "error", err)
		return in.formatError(err)
	}

	in.logger.Debug("handled chat message", "caller", callerID, "command", kind)
	return response
}

func (in *Interpreter) listIssues(ctx context.Context, message string) (string, error) {
	repo, err := ParseRepository(message, in.opts.DefaultRepository)
	if err != nil {
		return "", err
	}
	filter := ParseListFilter(message)

	issues, err := in.issues.ListIssues(ctx, repo.Owner, repo.Name, filter)
	if err != nil {
		return "", err
	}

	return formatIssueList(repo, filter, issues), nil
}

func (in *Interpreter) getIssue(ctx context.Context, message string) (string, error) {
	repo, err := ParseRepository(message, in.opts.DefaultRepository)
	if err != nil {
		return "", err
	}
	number, err := ParseIssueNumber(message)
	if err != nil {
		return "", err
	}

	issue, err := in.issues.GetIssue(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return "", err
	}

	return formatIssueDetail(repo, issue), nil
}

func (in *Interpreter) createIssue(ctx context.Context, message string) (string, error) {
	repo, err := ParseRepository(message, in.opts.DefaultRepository)
	if err != nil {
		return "", err
	}
	input, err := ParseNewIssue(message)
	if err != nil {
		return "", err
	}

	issue, err := in.issues.CreateIssue(ctx, repo.Owner, repo.Name, input)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Created issue #%d in %s: %s\nURL: %s", issue.Number, repo.FullName, issue.Title, issue.HTMLURL), nil
}

func (in *Interpreter) updateIssue(ctx context.Context, message string) (string, error) {
	repo, err := ParseRepository(message, in.opts.DefaultRepository)
	if err != nil {
		return "", err
	}
	number, err := ParseIssueNumber(message)
	if err != nil {
		return "", err
	}
	state, err := ParseTargetState(message)
	if err != nil {
		return "", err
	}

	issue, err := in.issues.UpdateIssue(ctx, repo.Owner, repo.Name, number, api.IssueUpdate{State: &state})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Issue #%d in %s is now %s.\nURL: %s", issue.Number, repo.FullName, issue.State, issue.HTMLURL), nil
}

func (in *Interpreter) addComment(ctx context.Context, message string) (string, error) {
	repo, err := ParseRepository(message, in.opts.DefaultRepository)
	if err != nil {
		return "", err
	}
	number, err := ParseIssueNumber(message)
	if err != nil {
		return "", err
	}
	text, err := ParseComment(message)
	if err != nil {
		return "", err
	}

	comment, err := in.issues.AddComment(ctx, repo.Owner, repo.Name, number, text)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Added comment to issue #%d in %s.\nURL: %s", number, repo.FullName, comment.HTMLURL), nil
}

func (in *Interpreter) manageNotifications(ctx context.Context, callerID, message string) (string, error) {
	switch ParseNotificationAction(message) {
	case NotificationsSetup:
		repo, err := ParseRepository(message, in.opts.DefaultRepository)
		if err != nil {
			return "", err
		}
		if in.opts.Resolver != nil {
			resolved, err := in.opts.Resolver.GetRepository(ctx, repo.Owner, repo.Name)
			if err != nil {
				return "", err
			}
			repo = *resolved
		}

		sub := in.registry.Subscribe(callerID, repo.Owner, repo.Name)
		in.logger.Info("notifications enabled", "caller", callerID, "repository", sub.FullName())
		return fmt.Sprintf("Notifications enabled for %s. I'll check for new issues every %s.",
			sub.FullName(), formatInterval(in.opts.PollInterval)), nil

	case NotificationsStop:
		sub, ok := in.registry.Disable(callerID)
		if !ok {
			return "You have no active notifications.", nil
		}
		in.logger.Info("notifications disabled", "caller", callerID, "repository", sub.FullName())
		return fmt.Sprintf("Notifications disabled for %s.", sub.FullName()), nil

	default:
		return "To manage notifications, say 'setup notifications for repo owner/repo_name' or 'stop notifications'.", nil
	}
}

func (in *Interpreter) formatError(err error) string {
	var paramErr *ParamError
	var apiErr *api.APIError
	var transportErr *api.TransportError

	switch {
	case errors.As(err, &paramErr):
		return "Error: " + paramErr.Message
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Error: GitHub returned %d: %s", apiErr.StatusCode, apiErr.Message)
	case errors.As(err, &transportErr):
		return "Error: could not reach GitHub, please try again later"
	default:
		return "Error: " + err.Error()
	}
}
