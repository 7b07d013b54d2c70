package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/domain"
)

func judgeCandidates() []domain.CandidateSummary {
	return []domain.CandidateSummary{
		{ID: "oak", Title: "Oak Plank Flooring", Category: "flooring", Tags: []string{"wood"}, Price: 42},
		{ID: "paint", Title: "Chalk White Paint", Category: "paint", Price: 30},
	}
}

func TestJudge_SelectRelevant(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{name: "object answer", reply: `{"relevantIds": ["oak"]}`, want: []string{"oak"}},
		{name: "empty answer", reply: `{"relevantIds": []}`, want: []string{}},
		{name: "bare list", reply: "```json\n[\"paint\", \"oak\"]\n```", want: []string{"paint", "oak"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeChatModel{reply: tt.reply}
			got, err := NewJudge(NewChatClient(fake, nil)).SelectRelevant(context.Background(), "oak floor", judgeCandidates())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJudge_PromptListsCandidatesWithoutVectors(t *testing.T) {
	fake := &fakeChatModel{reply: `{"relevantIds": []}`}
	_, err := NewJudge(NewChatClient(fake, nil)).SelectRelevant(context.Background(), "oak floor", judgeCandidates())
	require.NoError(t, err)

	prompt := fake.lastPrompt()
	assert.Contains(t, prompt, `"id":"oak"`)
	assert.Contains(t, prompt, `"title":"Chalk White Paint"`)
	assert.NotContains(t, prompt, "embedding")
}

func TestJudge_Malformed(t *testing.T) {
	for _, reply := range []string{"none of them", `{"ids": ["oak"]}`, `{"relevantIds": "oak"}`} {
		fake := &fakeChatModel{reply: reply}
		_, err := NewJudge(NewChatClient(fake, nil)).SelectRelevant(context.Background(), "q", judgeCandidates())
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "reply %q: %v", reply, err)
	}
}

func TestJudge_NoCandidatesSkipsProvider(t *testing.T) {
	fake := &fakeChatModel{reply: `{"relevantIds": ["x"]}`}
	got, err := NewJudge(NewChatClient(fake, nil)).SelectRelevant(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, fake.received)
}
