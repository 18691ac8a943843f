package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shurcooL/githubv4"
	"github.com/wesm/github-issue-chat/internal/models"
)

// GraphQLClient represents a client for the GitHub GraphQL API
type GraphQLClient struct {
	client *githubv4.Client
}

// NewGraphQLClient creates a new GraphQL client. The GraphQL API rejects
// unauthenticated calls, so httpClient should carry a token.
// baseURL is the REST base URL; empty means api.github.com.
func NewGraphQLClient(httpClient *http.Client, baseURL string) *GraphQLClient {
	if baseURL == "" {
		return &GraphQLClient{client: githubv4.NewClient(httpClient)}
	}
	// GitHub Enterprise serves REST under /api/v3 and GraphQL under /api/graphql
	base := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v3")
	endpoint := base + "/graphql"
	return &GraphQLClient{client: githubv4.NewEnterpriseClient(endpoint, httpClient)}
}

// Repository represents a GitHub repository in GraphQL
type Repository struct {
	Name  githubv4.String
	Owner struct {
		Login githubv4.String
	}
	NameWithOwner githubv4.String
	Issues        struct {
		TotalCount githubv4.Int
	} `graphql:"issues(states: OPEN)"`
}

// GetRepository gets a repository by owner and name
func (c *GraphQLClient) GetRepository(ctx context.Context, owner, name string) (*models.Repository, error) {
	var query struct {
		Repository Repository `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("failed to query repository %s/%s: %w", owner, name, err)
	}

	return &models.Repository{
		Owner:      string(query.Repository.Owner.Login),
		Name:       string(query.Repository.Name),
		FullName:   string(query.Repository.NameWithOwner),
		OpenIssues: int(query.Repository.Issues.TotalCount),
	}, nil
}
