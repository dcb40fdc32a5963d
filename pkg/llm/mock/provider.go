// Package mock provides scriptable in-memory capability gateways for tests
// and for running the pipeline without provider credentials.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tripkit/pkg/llm"
)

// Provider is a scriptable llm.Provider / Moderator / Synthesizer / Searcher.
// Responses are keyed by intent name; Fail queues one-shot errors consumed
// in FIFO order before any scripted response is returned.
type Provider struct {
	mu        sync.Mutex
	text      map[string][]string // intent -> queued responses
	errs      map[string][]error  // intent -> queued errors
	images    []*llm.SynthesizedImage
	imageErrs []error
	verdict   llm.ModerationVerdict
	results   []llm.SearchResult
	calls     map[string]int
}

// New creates an empty mock provider.
func New() *Provider {
	return &Provider{
		text:  make(map[string][]string),
		errs:  make(map[string][]error),
		calls: make(map[string]int),
	}
}

// Respond queues a text (or JSON) response for the given intent.
func (p *Provider) Respond(name, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text[name] = append(p.text[name], response)
}

// Fail queues a one-shot error for the given intent.
func (p *Provider) Fail(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[name] = append(p.errs[name], err)
}

// RespondImage queues a successful synthesis result.
func (p *Provider) RespondImage(img *llm.SynthesizedImage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images = append(p.images, img)
}

// FailImage queues a one-shot synthesis error.
func (p *Provider) FailImage(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imageErrs = append(p.imageErrs, err)
}

// SetVerdict sets the moderation verdict returned by Moderate.
func (p *Provider) SetVerdict(v llm.ModerationVerdict) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verdict = v
}

// SetSearchResults sets the hits returned by Search.
func (p *Provider) SetSearchResults(results []llm.SearchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = results
}

// Calls returns how many times the given intent was invoked.
func (p *Provider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *Provider) next(name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++

	if queue := p.errs[name]; len(queue) > 0 {
		err := queue[0]
		p.errs[name] = queue[1:]
		return "", err
	}

	queue := p.text[name]
	if len(queue) == 0 {
		return "", &llm.ProviderError{Provider: "mock", Transient: false,
			Err: fmt.Errorf("no scripted response for intent %q", name)}
	}
	resp := queue[0]
	if len(queue) > 1 {
		p.text[name] = queue[1:]
	}
	// The last response repeats so conversation loops can run past the script.
	return resp, nil
}

// GenerateText implements llm.Provider.
func (p *Provider) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	return p.next(name)
}

// GenerateJSON implements llm.Provider.
func (p *Provider) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	resp, err := p.next(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(resp)), target); err != nil {
		return &llm.ValidationError{Reason: "malformed JSON response", Err: err}
	}
	return nil
}

// HealthCheck implements llm.Provider.
func (p *Provider) HealthCheck(ctx context.Context) error { return nil }

// Moderate implements llm.Moderator.
func (p *Provider) Moderate(ctx context.Context, text string) (llm.ModerationVerdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["moderation"]++
	return p.verdict, nil
}

// SynthesizeImage implements llm.Synthesizer.
func (p *Provider) SynthesizeImage(ctx context.Context, prompt, size, quality, style string) (*llm.SynthesizedImage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["image"]++

	if len(p.imageErrs) > 0 {
		err := p.imageErrs[0]
		p.imageErrs = p.imageErrs[1:]
		return nil, err
	}
	if len(p.images) == 0 {
		return nil, &llm.ProviderError{Provider: "mock", Transient: false,
			Err: fmt.Errorf("no scripted image result")}
	}
	img := p.images[0]
	if len(p.images) > 1 {
		p.images = p.images[1:]
	}
	return img, nil
}

// Search implements llm.Searcher.
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]llm.SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["search"]++
	if maxResults > 0 && len(p.results) > maxResults {
		return p.results[:maxResults], nil
	}
	return p.results, nil
}
