package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphQLGetRepository(t *testing.T) {
	var gotPath, gotAuth string
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotVars = body.Variables

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"repository":{
			"name":"Widgets",
			"owner":{"login":"Acme"},
			"nameWithOwner":"Acme/Widgets",
			"issues":{"totalCount":3}}}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewGraphQLClient(NewHTTPClient("secret", 5*time.Second), srv.URL+"/api/v3")
	repo, err := client.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, "/api/graphql", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, map[string]any{"owner": "acme", "name": "widgets"}, gotVars)

	assert.Equal(t, "Acme", repo.Owner)
	assert.Equal(t, "Widgets", repo.Name)
	assert.Equal(t, "Acme/Widgets", repo.FullName)
	assert.Equal(t, 3, repo.OpenIssues)
}

func TestGraphQLGetRepository_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"repository":null},"errors":[{"message":"Could not resolve to a Repository with the name 'acme/nope'."}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewGraphQLClient(NewHTTPClient("secret", 5*time.Second), srv.URL)
	_, err := client.GetRepository(context.Background(), "acme", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not resolve")
}
