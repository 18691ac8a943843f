package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/github-issue-chat/internal/interpreter"
	"github.com/wesm/github-issue-chat/internal/models"
)

func TestAskExamplesNameTheirRepository(t *testing.T) {
	def := models.Repository{Owner: "octocat", Name: "hello-world", FullName: "octocat/hello-world"}
	want := map[interpreter.Kind]string{
		interpreter.KindListIssues:  "golang/go",
		interpreter.KindCreateIssue: "acme/widgets",
		interpreter.KindUpdateIssue: "acme/widgets",
	}

	for _, example := range askExamples {
		t.Run(example, func(t *testing.T) {
			kind := interpreter.Classify(example)
			require.Contains(t, want, kind)

			repo, err := interpreter.ParseRepository(example, def)
			require.NoError(t, err)
			assert.Equal(t, want[kind], repo.FullName)

			switch kind {
			case interpreter.KindCreateIssue:
				issue, err := interpreter.ParseNewIssue(example)
				require.NoError(t, err)
				assert.Equal(t, "Crash on save", issue.Title)
			case interpreter.KindUpdateIssue:
				number, err := interpreter.ParseIssueNumber(example)
				require.NoError(t, err)
				assert.Equal(t, 12, number)
			}
		})
	}

	for _, example := range askExamples {
		assert.Contains(t, askCmd.Example, example)
	}
}
