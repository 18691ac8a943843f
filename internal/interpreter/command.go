package interpreter

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/wesm/github-issue-chat/internal/api"
	"github.com/wesm/github-issue-chat/internal/models"
)

// Kind classifies a chat message
type Kind string

const (
	KindListIssues    Kind = "list-issues"
	KindCreateIssue   Kind = "create-issue"
	KindUpdateIssue   Kind = "update-issue"
	KindAddComment    Kind = "add-comment"
	KindNotifications Kind = "manage-notifications"
	KindGetIssue      Kind = "get-issue"
	KindHelp          Kind = "help"
	KindUnrecognized  Kind = "unrecognized"
)

// NotificationAction is what a manage-notifications message asks for
type NotificationAction int

const (
	NotificationsUnspecified NotificationAction = iota
	NotificationsSetup
	NotificationsStop
)

// ParamError is a missing or malformed argument in a chat message
type ParamError struct {
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}

const (
	msgRepoFormat  = "Please specify repository as 'owner/repo_name'"
	msgIssueNumber = "Please specify issue number with # (for example: #42)"
	msgPipeFormat  = "Please separate the issue title and body with '|' (for example: create issue in repo owner/repo_name: Title | Body)"
	msgTitle       = "Please provide an issue title after 'title:'"
	msgAction      = "Please specify whether to close or reopen the issue"
	msgComment     = "Please put your comment after ':' (for example: add comment to #42: Looks good)"
)

// rules are checked in order and the first match wins
var rules = []struct {
	kind     Kind
	keywords []string
}{
	{KindListIssues, []string{"issues", "show issues", "get issues"}},
	{KindCreateIssue, []string{"create issue", "new issue"}},
	{KindUpdateIssue, []string{"update issue", "close issue", "edit issue", "reopen issue"}},
	{KindAddComment, []string{"add comment", "comment on"}},
	{KindNotifications, []string{"notify", "notification", "alert"}},
	{KindGetIssue, []string{"show issue", "view issue", "get issue"}},
	{KindHelp, []string{"help"}},
}

// Classify returns the kind of command a message asks for
func Classify(message string) Kind {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		if containsAny(lower, rule.keywords) {
			return rule.kind
		}
	}
	return KindUnrecognized
}

// ParseRepository returns the repository named after the word "repo", or def
// when the message names none.
func ParseRepository(message string, def models.Repository) (models.Repository, error) {
	words := strings.Fields(message)
	for i, word := range words {
		if !strings.EqualFold(word, "repo") {
			continue
		}
		if i+1 >= len(words) {
			return models.Repository{}, &ParamError{Message: msgRepoFormat}
		}
		repo, err := models.ParseRepository(strings.TrimRight(words[i+1], ",.;:!?"))
		if err != nil {
			return models.Repository{}, &ParamError{Message: msgRepoFormat}
		}
		return repo, nil
	}
	return def, nil
}

// ParseIssueNumber returns the number following the first "#"
func ParseIssueNumber(message string) (int, error) {
	idx := strings.Index(message, "#")
	if idx < 0 {
		return 0, &ParamError{Message: msgIssueNumber}
	}

	token := firstField(message[idx+1:])
	end := strings.IndexFunc(token, func(r rune) bool { return !unicode.IsDigit(r) })
	if end >= 0 {
		token = token[:end]
	}

	number, err := strconv.Atoi(token)
	if err != nil || number <= 0 {
		return 0, &ParamError{Message: msgIssueNumber}
	}
	return number, nil
}

// ParseListFilter extracts the state, label, assignee and creator filters.
// "all" is checked after "closed" and wins when both appear.
func ParseListFilter(message string) api.IssueFilter {
	lower := strings.ToLower(message)

	filter := api.IssueFilter{State: "open"}
	if strings.Contains(lower, "closed") {
		filter.State = "closed"
	}
	if strings.Contains(lower, "all") {
		filter.State = "all"
	}

	labels, ok := valueAfter(message, "labels:")
	if !ok {
		labels, _ = valueAfter(message, "label:")
	}
	for _, label := range strings.Split(labels, ",") {
		if label = strings.TrimSpace(label); label != "" {
			filter.Labels = append(filter.Labels, label)
		}
	}

	filter.Assignee, _ = valueAfter(message, "assignee:")
	filter.Creator, _ = valueAfter(message, "creator:")
	return filter
}

// ParseNewIssue extracts the title and body of an issue to create. The
// "title:"/"body:" markers take precedence over the "title | body" form.
func ParseNewIssue(message string) (api.NewIssue, error) {
	titleIdx := indexFold(message, "title:")
	bodyIdx := indexFold(message, "body:")

	if titleIdx >= 0 || bodyIdx >= 0 {
		var issue api.NewIssue
		if titleIdx >= 0 {
			end := len(message)
			if bodyIdx > titleIdx {
				end = bodyIdx
			}
			issue.Title = trimField(message[titleIdx+len("title:") : end])
		}
		if bodyIdx >= 0 {
			end := len(message)
			if titleIdx > bodyIdx {
				end = titleIdx
			}
			issue.Body = trimField(message[bodyIdx+len("body:") : end])
		}
		if issue.Title == "" {
			return api.NewIssue{}, &ParamError{Message: msgTitle}
		}
		return issue, nil
	}

	parts := strings.Split(message, "|")
	if len(parts) < 2 {
		return api.NewIssue{}, &ParamError{Message: msgPipeFormat}
	}

	title := removeFold(parts[0], "create issue")
	title = removeFold(title, "new issue")
	var words []string
	for _, word := range strings.Fields(title) {
		if !strings.EqualFold(word, "in") {
			words = append(words, word)
		}
	}

	issue := api.NewIssue{
		Title: strings.Trim(strings.Join(words, " "), " :"),
		Body:  strings.TrimSpace(strings.Join(parts[1:], "|")),
	}
	if issue.Title == "" {
		return api.NewIssue{}, &ParamError{Message: msgPipeFormat}
	}
	return issue, nil
}

// ParseTargetState returns the state an update-issue message asks for.
// "close" is checked first and wins over "reopen".
func ParseTargetState(message string) (string, error) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "close"):
		return "closed", nil
	case strings.Contains(lower, "reopen"):
		return "open", nil
	default:
		return "", &ParamError{Message: msgAction}
	}
}

// ParseComment returns the text after the first ":"
func ParseComment(message string) (string, error) {
	idx := strings.Index(message, ":")
	if idx < 0 {
		return "", &ParamError{Message: msgComment}
	}
	text := strings.TrimSpace(message[idx+1:])
	if text == "" {
		return "", &ParamError{Message: msgComment}
	}
	return text, nil
}

// ParseNotificationAction returns whether the message sets up or stops notifications
func ParseNotificationAction(message string) NotificationAction {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, []string{"setup", "start"}):
		return NotificationsSetup
	case containsAny(lower, []string{"stop", "disable"}):
		return NotificationsStop
	default:
		return NotificationsUnspecified
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// indexFold is strings.Index ignoring ASCII case. substr must be ASCII.
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func removeFold(s, substr string) string {
	for {
		idx := indexFold(s, substr)
		if idx < 0 {
			return s
		}
		s = s[:idx] + " " + s[idx+len(substr):]
	}
}

// valueAfter returns the first word following marker
func valueAfter(message, marker string) (string, bool) {
	idx := indexFold(message, marker)
	if idx < 0 {
		return "", false
	}
	value := firstField(message[idx+len(marker):])
	return value, value != ""
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func trimField(s string) string {
	return strings.Trim(s, " \t\r\n|")
}
