package models

import (
	"fmt"
	"strings"
	"time"
)

// Repository represents a GitHub repository
type Repository struct {
	Owner    string
	Name     string
	FullName string
	// OpenIssues is only populated by the GraphQL lookup
	OpenIssues int
}

// ParseRepository parses a repository string in the format "owner/name"
func ParseRepository(repoStr string) (Repository, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return Repository{
		Owner:    parts[0],
		Name:     parts[1],
		FullName: parts[0] + "/" + parts[1],
	}, nil
}

// Issue is a read-only view of a GitHub issue
type Issue struct {
	Number        int
	Title         string
	Body          string
	State         string
	Labels        []string
	Assignee      string
	HTMLURL       string
	Comments      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	IsPullRequest bool
}

// Comment represents a GitHub issue comment
type Comment struct {
	ID        int64
	Body      string
	HTMLURL   string
	CreatedAt time.Time
}

// Subscriber is a caller registered for new-issue notifications
type Subscriber struct {
	CallerID string
	Owner    string
	Repo     string
	Enabled  bool
}

// FullName returns the subscribed repository as "owner/name"
func (s Subscriber) FullName() string {
	return s.Owner + "/" + s.Repo
}

// Notification records a new issue reported to a subscriber
type Notification struct {
	ID          string    `json:"id"`
	CallerID    string    `json:"caller_id"`
	Repository  string    `json:"repository"`
	IssueNumber int       `json:"issue_number"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	NotifiedAt  time.Time `json:"notified_at"`
}
