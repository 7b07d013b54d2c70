package llm

import (
	"context"
	"fmt"

	"github.com/catalogmatch/backend/internal/domain"
)

const classifySystemPrompt = `You split home-improvement shopping queries into catalog items.
Answer with JSON only, no prose.`

// Classifier asks a chat model whether a query names several catalog items
type Classifier struct {
	client *ChatClient
}

// NewClassifier creates a domain.ItemClassifier backed by a chat model
func NewClassifier(client *ChatClient) *Classifier {
	return &Classifier{client: client}
}

type classifyAnswer struct {
	IsMultiple bool     `json:"isMultiple"`
	Items      []string `json:"items"`
}

// Classify returns the raw decomposition; callers sanitize it
func (c *Classifier) Classify(ctx context.Context, query string) (*domain.Decomposition, error) {
	answer, err := c.client.Complete(ctx, classifySystemPrompt, buildClassifyPrompt(query))
	if err != nil {
		return nil, err
	}

	var parsed classifyAnswer
	if err := decodeJSONAnswer(answer, '{', '}', &parsed); err != nil {
		return nil, err
	}
	return &domain.Decomposition{IsMultiple: parsed.IsMultiple, Items: parsed.Items}, nil
}

func buildClassifyPrompt(query string) string {
	return fmt.Sprintf(`QUERY: %q

Decide whether the query asks for ONE product or SEVERAL distinct products.
A single product described with several attributes ("matte black brass tap")
is ONE product. Lists of different products ("tiles, grout and adhesive") are SEVERAL.

Respond with:
{"isMultiple": true|false, "items": ["<product 1>", "<product 2>"]}

When isMultiple is false, items holds the original query.`, query)
}
