package interpreter

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesm/github-issue-chat/internal/api"
	"github.com/wesm/github-issue-chat/internal/models"
)

const bodyExcerptLen = 300

func formatIssueList(repo models.Repository, filter api.IssueFilter, issues []*models.Issue) string {
	var b strings.Builder
	listed := 0
	for _, issue := range issues {
		if issue.IsPullRequest {
			continue
		}
		if listed == MaxListedIssues {
			break
		}
		if listed == 0 {
			fmt.Fprintf(&b, "Issues in %s (%s):", repo.FullName, filter.State)
		}
		listed++
		fmt.Fprintf(&b, "\n#%d: %s\n   State: %s | Assignee: %s | Labels: %s\n   URL: %s",
			issue.Number, issue.Title, issue.State, assigneeOrDefault(issue), labelsOrDefault(issue), issue.HTMLURL)
	}

	if listed == 0 {
		return fmt.Sprintf("No issues found in %s (%s).", repo.FullName, filter.State)
	}
	return b.String()
}

func formatIssueDetail(repo models.Repository, issue *models.Issue) string {
	var b strings.Builder
	kind := "Issue"
	if issue.IsPullRequest {
		kind = "Pull request"
	}
	fmt.Fprintf(&b, "%s #%d in %s: %s\n", kind, issue.Number, repo.FullName, issue.Title)
	fmt.Fprintf(&b, "State: %s | Assignee: %s | Labels: %s | Comments: %d\n",
		issue.State, assigneeOrDefault(issue), labelsOrDefault(issue), issue.Comments)
	fmt.Fprintf(&b, "URL: %s", issue.HTMLURL)

	if body := strings.TrimSpace(issue.Body); body != "" {
		if len(body) > bodyExcerptLen {
			body = strings.ToValidUTF8(body[:bodyExcerptLen], "") + "..."
		}
		fmt.Fprintf(&b, "\n\n%s", body)
	}
	return b.String()
}

func assigneeOrDefault(issue *models.Issue) string {
	if issue.Assignee == "" {
		return "unassigned"
	}
	return issue.Assignee
}

func labelsOrDefault(issue *models.Issue) string {
	if len(issue.Labels) == 0 {
		return "none"
	}
	return strings.Join(issue.Labels, ", ")
}

func formatInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "few minutes"
	case d%time.Minute == 0 && d == time.Minute:
		return "minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

func helpText(def models.Repository) string {
	return fmt.Sprintf(`I can help you manage GitHub issues. Try:
- show issues for repo owner/repo_name (add label:bug, assignee:user, creator:user, closed or all to filter)
- show issue #42 in repo owner/repo_name
- create issue in repo owner/repo_name title: Something broke body: Steps to reproduce
- close issue #42 in repo owner/repo_name (or reopen issue #42)
- add comment to #42 in repo owner/repo_name: your comment
- setup notifications for repo owner/repo_name, or stop notifications
When no repository is given, %s is used.`, def.FullName)
}
