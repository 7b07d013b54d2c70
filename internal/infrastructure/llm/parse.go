package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalogmatch/backend/internal/domain"
)

// decodeJSONAnswer decodes the first JSON value of kind open..close found in a
// model answer, tolerating markdown code fences and surrounding prose.
func decodeJSONAnswer(answer string, open, close byte, v interface{}) error {
	text := strings.TrimSpace(answer)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON found in answer", domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
