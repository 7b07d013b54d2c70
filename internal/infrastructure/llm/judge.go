package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catalogmatch/backend/internal/domain"
)

const judgeSystemPrompt = `You check search results of a building-materials catalog.
Keep only candidates that clearly match what the user is looking for.
Answer with JSON only, no prose.`

// Judge asks a chat model which recalled candidates are relevant to a query
type Judge struct {
	client *ChatClient
}

// NewJudge creates a domain.RelevanceJudge backed by a chat model
func NewJudge(client *ChatClient) *Judge {
	return &Judge{client: client}
}

type judgeAnswer struct {
	RelevantIDs *[]string `json:"relevantIds"`
}

// SelectRelevant returns the ids the model judged relevant, most relevant first.
// Ids are returned as answered; callers re-validate them.
func (j *Judge) SelectRelevant(ctx context.Context, query string, candidates []domain.CandidateSummary) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	listing, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}

	answer, err := j.client.Complete(ctx, judgeSystemPrompt, buildJudgePrompt(query, string(listing)))
	if err != nil {
		return nil, err
	}

	var parsed judgeAnswer
	if err := decodeJSONAnswer(answer, '{', '}', &parsed); err == nil {
		if parsed.RelevantIDs == nil {
			return nil, fmt.Errorf("%w: answer has no relevantIds", domain.ErrMalformedResponse)
		}
		return *parsed.RelevantIDs, nil
	}

	// some models answer with the bare id list
	var ids []string
	if err := decodeJSONAnswer(answer, '[', ']', &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func buildJudgePrompt(query, candidates string) string {
	return fmt.Sprintf(`SEARCH QUERY: %q

CANDIDATES (JSON):
%s

Return the ids of the candidates that are clearly relevant, most relevant first.
Return an empty list when none are relevant.

Respond with:
{"relevantIds": ["<id>", "..."]}`, query, candidates)
}
