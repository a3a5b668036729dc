package metrics

import (
	"context"

	"github.com/jmylchreest/harvest-api/internal/llm"
)

// instrumentedClient feeds the LLM counters from every completion.
type instrumentedClient struct {
	next llm.Client
	m    *Metrics
}

// InstrumentClient wraps a provider client with request and token counters.
func (m *Metrics) InstrumentClient(next llm.Client) llm.Client {
	return &instrumentedClient{next: next, m: m}
}

// InstrumentClients wraps a client factory so every client it builds is
// instrumented.
func (m *Metrics) InstrumentClients(next func(provider string, cfg llm.Config) (llm.Client, error)) func(provider string, cfg llm.Config) (llm.Client, error) {
	return func(provider string, cfg llm.Config) (llm.Client, error) {
		client, err := next(provider, cfg)
		if err != nil {
			return nil, err
		}
		return m.InstrumentClient(client), nil
	}
}

func (c *instrumentedClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := c.next.Complete(ctx, req)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.m.RecordLLMRequest(c.next.Provider(), outcome)
	if resp != nil {
		c.m.AddLLMTokens(c.next.Provider(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return resp, err
}

func (c *instrumentedClient) Provider() string { return c.next.Provider() }

func (c *instrumentedClient) Model() string { return c.next.Model() }
