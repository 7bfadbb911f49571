package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyServer(t *testing.T, reply string, seen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req.Prompt
		}
		json.NewEncoder(w).Encode(generateResponse{Response: reply, Done: true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseAnalysisKind(t *testing.T) {
	k, err := ParseAnalysisKind("")
	require.NoError(t, err)
	assert.Equal(t, AnalyzeAll, k)

	k, err = ParseAnalysisKind(" Structure ")
	require.NoError(t, err)
	assert.Equal(t, AnalyzeStructure, k)

	_, err = ParseAnalysisKind("sentiment")
	assert.Error(t, err)
}

func TestAnalyze_JSONReply(t *testing.T) {
	var prompt string
	srv := replyServer(t, "```json\n{\"summary\":\"Quarterly report\",\"confidence\":0.8}\n```", &prompt)

	a, err := testClient(srv.URL).Analyze(context.Background(), "Revenue grew.", AnalyzeContent)
	require.NoError(t, err)

	assert.Equal(t, AnalyzeContent, a.Kind)
	assert.Equal(t, "Quarterly report", a.Fields["summary"])
	assert.Equal(t, 0.8, a.Fields["confidence"])
	assert.Empty(t, a.Text)

	assert.Contains(t, prompt, "Analysis type: content")
	assert.Contains(t, prompt, "Revenue grew.")
	assert.Contains(t, prompt, "key facts")
}

func TestAnalyze_TextReply(t *testing.T) {
	srv := replyServer(t, "It is a short memo.", nil)

	a, err := testClient(srv.URL).Analyze(context.Background(), "memo", AnalyzeAll)
	require.NoError(t, err)
	assert.Nil(t, a.Fields)
	assert.Equal(t, "It is a short memo.", a.Text)
}
