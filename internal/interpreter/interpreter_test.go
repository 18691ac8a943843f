package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/github-issue-chat/internal/api"
	"github.com/wesm/github-issue-chat/internal/models"
	"github.com/wesm/github-issue-chat/internal/registry"
)

// ---------------------------------------------------------------------------
// Fake GitHub client
// ---------------------------------------------------------------------------

type call struct {
	op     string
	owner  string
	repo   string
	number int
	filter api.IssueFilter
	input  api.NewIssue
	update api.IssueUpdate
	body   string
}

type fakeIssues struct {
	calls  []call
	issues []*models.Issue
	err    error
	panic  bool
}

func (f *fakeIssues) ListIssues(_ context.Context, owner, name string, filter api.IssueFilter) ([]*models.Issue, error) {
	f.calls = append(f.calls, call{op: "list", owner: owner, repo: name, filter: filter})
	if f.panic {
		panic("boom")
	}
	return f.issues, f.err
}

func (f *fakeIssues) GetIssue(_ context.Context, owner, name string, number int) (*models.Issue, error) {
	f.calls = append(f.calls, call{op: "get", owner: owner, repo: name, number: number})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Issue{Number: number, Title: "Crash on start", State: "open", Body: "stack trace", Comments: 2,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/issues/%d", owner, name, number)}, nil
}

func (f *fakeIssues) CreateIssue(_ context.Context, owner, name string, input api.NewIssue) (*models.Issue, error) {
	f.calls = append(f.calls, call{op: "create", owner: owner, repo: name, input: input})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Issue{Number: 12, Title: input.Title, State: "open",
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/issues/12", owner, name)}, nil
}

func (f *fakeIssues) UpdateIssue(_ context.Context, owner, name string, number int, update api.IssueUpdate) (*models.Issue, error) {
	f.calls = append(f.calls, call{op: "update", owner: owner, repo: name, number: number, update: update})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Issue{Number: number, State: *update.State,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/issues/%d", owner, name, number)}, nil
}

func (f *fakeIssues) AddComment(_ context.Context, owner, name string, number int, body string) (*models.Comment, error) {
	f.calls = append(f.calls, call{op: "comment", owner: owner, repo: name, number: number, body: body})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Comment{ID: 1, Body: body, HTMLURL: "https://github.com/x#issuecomment-1"}, nil
}

type fakeResolver struct {
	repo *models.Repository
	err  error
}

func (f *fakeResolver) GetRepository(_ context.Context, owner, name string) (*models.Repository, error) {
	return f.repo, f.err
}

func newTestInterpreter(t *testing.T) (*Interpreter, *fakeIssues, *registry.Registry) {
	t.Helper()
	fake := &fakeIssues{}
	reg := registry.New()
	in := New(fake, reg, Options{
		DefaultRepository: defaultRepo,
		PollInterval:      5 * time.Minute,
	})
	return in, fake, reg
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHandle_ListIssues(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)
	fake.issues = []*models.Issue{
		{Number: 1, Title: "Bug one", State: "open", Labels: []string{"bug", "ui"}, Assignee: "alice", HTMLURL: "https://github.com/acme/widgets/issues/1"},
		{Number: 2, Title: "A pull request", State: "open", IsPullRequest: true},
		{Number: 3, Title: "Bug three", State: "open"},
	}

	resp := in.Handle(context.Background(), "caller", "show issues for repo acme/widgets with label:bug")

	require.Len(t, fake.calls, 1)
	c := fake.calls[0]
	assert.Equal(t, "acme", c.owner)
	assert.Equal(t, "widgets", c.repo)
	assert.Equal(t, "open", c.filter.State)
	assert.Equal(t, []string{"bug"}, c.filter.Labels)

	assert.Contains(t, resp, "Issues in acme/widgets (open):")
	assert.Contains(t, resp, "#1: Bug one")
	assert.Contains(t, resp, "Assignee: alice | Labels: bug, ui")
	assert.Contains(t, resp, "URL: https://github.com/acme/widgets/issues/1")
	assert.Contains(t, resp, "#3: Bug three")
	assert.Contains(t, resp, "Assignee: unassigned | Labels: none")
	assert.NotContains(t, resp, "pull request")
	assert.NotContains(t, resp, "#2:")
}

func TestHandle_ListIssues_CapsAtEight(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)
	for i := 1; i <= 10; i++ {
		fake.issues = append(fake.issues, &models.Issue{Number: i, Title: fmt.Sprintf("issue %d", i), State: "open"})
	}

	resp := in.Handle(context.Background(), "caller", "show issues")
	assert.Contains(t, resp, "#8: issue 8")
	assert.NotContains(t, resp, "#9: issue 9")
	assert.Equal(t, "octocat", fake.calls[0].owner)
}

func TestHandle_ListIssues_OnlyPullRequests(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)
	fake.issues = []*models.Issue{{Number: 2, Title: "PR", IsPullRequest: true}}

	resp := in.Handle(context.Background(), "caller", "show all issues for repo acme/widgets")
	assert.Equal(t, "No issues found in acme/widgets (all).", resp)
}

func TestHandle_MalformedRepoNeverPanics(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "show issues for repo acme")
	assert.True(t, strings.HasPrefix(resp, "Error"), resp)
	assert.Contains(t, resp, "owner/repo_name")
	assert.Empty(t, fake.calls)
}

func TestHandle_CreateIssue(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "create issue in repo acme/widgets title: Bug body: Desc")
	require.Len(t, fake.calls, 1)
	assert.Equal(t, api.NewIssue{Title: "Bug", Body: "Desc"}, fake.calls[0].input)
	assert.Equal(t, "Created issue #12 in acme/widgets: Bug\nURL: https://github.com/acme/widgets/issues/12", resp)
}

func TestHandle_UpdateIssue(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "close issue #42 in repo acme/widgets")
	require.Len(t, fake.calls, 1)
	c := fake.calls[0]
	assert.Equal(t, 42, c.number)
	assert.Equal(t, "acme", c.owner)
	assert.Equal(t, "widgets", c.repo)
	require.NotNil(t, c.update.State)
	assert.Equal(t, "closed", *c.update.State)
	assert.Nil(t, c.update.Title)
	assert.Nil(t, c.update.Body)
	assert.Contains(t, resp, "Issue #42 in acme/widgets is now closed.")
}

func TestHandle_UpdateIssue_MissingNumber(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "close issue in repo acme/widgets")
	assert.Equal(t, "Error: "+msgIssueNumber, resp)
	assert.Empty(t, fake.calls)
}

func TestHandle_AddComment(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "add comment to #5 in repo acme/widgets: looks good")
	require.Len(t, fake.calls, 1)
	assert.Equal(t, 5, fake.calls[0].number)
	assert.Equal(t, "looks good", fake.calls[0].body)
	assert.Contains(t, resp, "Added comment to issue #5 in acme/widgets.")
}

func TestHandle_GetIssue(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "show issue #7 in repo acme/widgets")
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "get", fake.calls[0].op)
	assert.Contains(t, resp, "Issue #7 in acme/widgets: Crash on start")
	assert.Contains(t, resp, "Comments: 2")
	assert.Contains(t, resp, "stack trace")
}

func TestHandle_ClientErrors(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	fake.err = &api.APIError{Op: "list issues", StatusCode: 404, Message: "Not Found"}
	resp := in.Handle(context.Background(), "caller", "show issues for repo acme/widgets")
	assert.Equal(t, "Error: GitHub returned 404: Not Found", resp)

	fake.err = &api.TransportError{Op: "list issues", Err: errors.New("dial tcp: timeout")}
	resp = in.Handle(context.Background(), "caller", "show issues for repo acme/widgets")
	assert.Equal(t, "Error: could not reach GitHub, please try again later", resp)
}

func TestHandle_PanicBecomesProcessingError(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)
	fake.panic = true

	resp := in.Handle(context.Background(), "caller", "show issues")
	assert.Equal(t, ProcessingError, resp)
}

func TestHandle_HelpAndUnrecognized(t *testing.T) {
	in, fake, _ := newTestInterpreter(t)

	help := in.Handle(context.Background(), "caller", "help")
	assert.Contains(t, help, "show issues for repo owner/repo_name")
	assert.Contains(t, help, "octocat/hello-world")

	assert.Equal(t, help, in.Handle(context.Background(), "caller", "hello there"))
	assert.Empty(t, fake.calls)
}

func TestHandle_NotificationsLifecycle(t *testing.T) {
	in, _, reg := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "10.0.0.1", "setup notifications for repo acme/widgets")
	assert.Equal(t, "Notifications enabled for acme/widgets. I'll check for new issues every 5 minutes.", resp)

	sub, ok := reg.Get("10.0.0.1")
	require.True(t, ok)
	assert.True(t, sub.Enabled)

	resp = in.Handle(context.Background(), "10.0.0.1", "stop notifications")
	assert.Equal(t, "Notifications disabled for acme/widgets.", resp)

	sub, ok = reg.Get("10.0.0.1")
	require.True(t, ok, "registration is kept")
	assert.False(t, sub.Enabled)
	assert.Equal(t, "acme", sub.Owner)
}

func TestHandle_NotificationsStopWithoutSetup(t *testing.T) {
	in, _, _ := newTestInterpreter(t)

	resp := in.Handle(context.Background(), "caller", "stop notifications")
	assert.Equal(t, "You have no active notifications.", resp)

	resp = in.Handle(context.Background(), "caller", "notifications")
	assert.Contains(t, resp, "setup notifications for repo owner/repo_name")
}

func TestHandle_NotificationsDefaultRepo(t *testing.T) {
	in, _, reg := newTestInterpreter(t)

	in.Handle(context.Background(), "caller", "start notifications")
	sub, ok := reg.Get("caller")
	require.True(t, ok)
	assert.Equal(t, "octocat/hello-world", sub.FullName())
}

func TestHandle_NotificationsResolver(t *testing.T) {
	fake := &fakeIssues{}
	reg := registry.New()
	resolver := &fakeResolver{repo: &models.Repository{Owner: "Acme", Name: "Widgets", FullName: "Acme/Widgets"}}
	in := New(fake, reg, Options{DefaultRepository: defaultRepo, Resolver: resolver})

	resp := in.Handle(context.Background(), "caller", "setup notifications for repo acme/widgets")
	assert.Contains(t, resp, "Acme/Widgets")
	sub, _ := reg.Get("caller")
	assert.Equal(t, "Widgets", sub.Repo)

	resolver.err = errors.New("Could not resolve to a Repository")
	resp = in.Handle(context.Background(), "other", "setup notifications for repo acme/missing")
	assert.True(t, strings.HasPrefix(resp, "Error"), resp)
	_, ok := reg.Get("other")
	assert.False(t, ok)
}
