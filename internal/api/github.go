package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/github-issue-chat/internal/models"
	"golang.org/x/oauth2"
)

const (
	// DefaultPageSize is the number of issues requested by ListIssues when unset
	DefaultPageSize = 10

	// DefaultUserAgent identifies this client to the GitHub API
	DefaultUserAgent = "issuechat/1.0"

	sincePageSize = 100
)

// APIError is a non-success response returned by the GitHub API
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API returned %d while trying to %s: %s", e.StatusCode, e.Op, e.Message)
}

// TransportError is a network-level failure talking to the GitHub API
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Options configures a GitHubClient
type Options struct {
	// Token is the optional bearer credential. Empty means unauthenticated calls.
	Token     string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// IssueFilter narrows an issue listing
type IssueFilter struct {
	State    string
	Labels   []string
	Assignee string
	Creator  string
	PageSize int
}

// NewIssue holds the fields of an issue to create
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// IssueUpdate holds the fields to change on an issue. Nil fields are left untouched.
type IssueUpdate struct {
	Title     *string
	Body      *string
	State     *string
	Labels    *[]string
	Assignees *[]string
}

// GitHubClient represents a client for the GitHub REST API
type GitHubClient struct {
	client *github.Client
}

// NewHTTPClient creates the HTTP client shared by the REST and GraphQL clients
func NewHTTPClient(token string, timeout time.Duration) *http.Client {
	if token == "" {
		return &http.Client{Timeout: timeout}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = timeout
	return tc
}

// NewGitHubClient creates a new GitHub API client
func NewGitHubClient(opts Options) (*GitHubClient, error) {
	client := github.NewClient(NewHTTPClient(opts.Token, opts.Timeout))

	client.UserAgent = DefaultUserAgent
	if opts.UserAgent != "" {
		client.UserAgent = opts.UserAgent
	}

	if opts.BaseURL != "" {
		baseURL, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API base URL: %w", err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		client.BaseURL = baseURL
	}

	return &GitHubClient{client: client}, nil
}

// ListIssues lists issues for a repository. Pull requests are included and flagged.
func (c *GitHubClient) ListIssues(ctx context.Context, owner, name string, filter IssueFilter) ([]*models.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:    filter.State,
		Labels:   filter.Labels,
		Assignee: filter.Assignee,
		Creator:  filter.Creator,
		ListOptions: github.ListOptions{
			PerPage: filter.PageSize,
		},
	}
	if opts.State == "" {
		opts.State = "open"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPageSize
	}

	issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, name, opts)
	if err != nil {
		return nil, convertError("list issues", resp, err)
	}

	return ConvertGitHubIssues(issues), nil
}

// GetIssue gets a single issue by number
func (c *GitHubClient) GetIssue(ctx context.Context, owner, name string, number int) (*models.Issue, error) {
	issue, resp, err := c.client.Issues.Get(ctx, owner, name, number)
	if err != nil {
		return nil, convertError("get issue", resp, err)
	}

	return ConvertGitHubIssue(issue), nil
}

// CreateIssue creates a new issue
func (c *GitHubClient) CreateIssue(ctx context.Context, owner, name string, input NewIssue) (*models.Issue, error) {
	req := &github.IssueRequest{
		Title: github.String(input.Title),
		Body:  github.String(input.Body),
	}
	if len(input.Labels) > 0 {
		req.Labels = &input.Labels
	}
	if len(input.Assignees) > 0 {
		req.Assignees = &input.Assignees
	}

	issue, resp, err := c.client.Issues.Create(ctx, owner, name, req)
	if err != nil {
		return nil, convertError("create issue", resp, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, unexpectedStatus("create issue", resp)
	}

	return ConvertGitHubIssue(issue), nil
}

// UpdateIssue edits an issue, sending only the fields set in update
func (c *GitHubClient) UpdateIssue(ctx context.Context, owner, name string, number int, update IssueUpdate) (*models.Issue, error) {
	req := &github.IssueRequest{
		Title:     update.Title,
		Body:      update.Body,
		State:     update.State,
		Labels:    update.Labels,
		Assignees: update.Assignees,
	}

	issue, resp, err := c.client.Issues.Edit(ctx, owner, name, number, req)
	if err != nil {
		return nil, convertError("update issue", resp, err)
	}

	return ConvertGitHubIssue(issue), nil
}

// AddComment adds a comment to an issue
func (c *GitHubClient) AddComment(ctx context.Context, owner, name string, number int, body string) (*models.Comment, error) {
	comment, resp, err := c.client.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return nil, convertError("add comment", resp, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, unexpectedStatus("add comment", resp)
	}

	return ConvertGitHubComment(comment), nil
}

// ListIssuesSince lists issues of any state, newest first, updated since a given time.
// Paging stops once a page reaches issues created before since.
func (c *GitHubClient) ListIssuesSince(ctx context.Context, owner, name string, since time.Time) ([]*models.Issue, error) {
	var allIssues []*models.Issue
	opts := &github.IssueListByRepoOptions{
		State:     "all",
		Sort:      "created",
		Direction: "desc",
		Since:     since,
		ListOptions: github.ListOptions{
			PerPage: sincePageSize,
		},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, convertError("list issues since "+since.UTC().Format(time.RFC3339), resp, err)
		}

		converted := ConvertGitHubIssues(issues)
		allIssues = append(allIssues, converted...)

		if resp.NextPage == 0 || len(converted) == 0 || converted[len(converted)-1].CreatedAt.Before(since) {
			break
		}
		opts.Page = resp.NextPage
	}

	return allIssues, nil
}

// convertError splits go-github failures into API responses and transport faults
func convertError(op string, resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return &TransportError{Op: op, Err: err}
	}

	msg := err.Error()
	var errResp *github.ErrorResponse
	var rateErr *github.RateLimitError
	switch {
	case errors.As(err, &errResp) && errResp.Message != "":
		msg = errResp.Message
		if details := errorDetails(errResp.Errors); details != "" {
			msg += " (" + details + ")"
		}
	case errors.As(err, &rateErr):
		msg = rateErr.Message
	}

	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

// errorDetails renders the "errors" array GitHub attaches to validation failures
func errorDetails(details []github.Error) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		switch {
		case d.Message != "":
			parts = append(parts, d.Message)
		case d.Field != "":
			parts = append(parts, fmt.Sprintf("%s: %s %s", d.Resource, d.Field, d.Code))
		case d.Code != "":
			parts = append(parts, d.Code)
		}
	}
	return strings.Join(parts, "; ")
}

func unexpectedStatus(op string, resp *github.Response) error {
	return &APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("expected status %d", http.StatusCreated),
	}
}

// ConvertGitHubIssues converts a page of GitHub issues to our model
func ConvertGitHubIssues(issues []*github.Issue) []*models.Issue {
	out := make([]*models.Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, ConvertGitHubIssue(issue))
	}
	return out
}

// ConvertGitHubIssue converts a GitHub issue to our model
func ConvertGitHubIssue(issue *github.Issue) *models.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	return &models.Issue{
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		State:         issue.GetState(),
		Labels:        labels,
		Assignee:      issue.GetAssignee().GetLogin(),
		HTMLURL:       issue.GetHTMLURL(),
		Comments:      issue.GetComments(),
		CreatedAt:     issue.GetCreatedAt().Time,
		UpdatedAt:     issue.GetUpdatedAt().Time,
		IsPullRequest: issue.IsPullRequest(),
	}
}

// ConvertGitHubComment converts a GitHub comment to our model
func ConvertGitHubComment(comment *github.IssueComment) *models.Comment {
	return &models.Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		HTMLURL:   comment.GetHTMLURL(),
		CreatedAt: comment.GetCreatedAt().Time,
	}
}
