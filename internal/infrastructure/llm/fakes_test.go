package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel answers every Generate call with a canned reply
type fakeChatModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.received = append(f.received, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChatModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) == 0 {
		return ""
	}
	msgs := f.received[len(f.received)-1]
	return msgs[len(msgs)-1].Content
}

// fakeEinoEmbedder returns a fixed vector for every text
type fakeEinoEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// countingEmbedder is a domain.Embedder that counts calls
type countingEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.vector, nil
}
