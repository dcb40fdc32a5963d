package llm

import (
	"context"
)

// Provider defines the text-completion capability gateway.
// Implementations are stateless at this layer: errors surface typed
// (ProviderError, RateLimitError, ContentPolicyError) and retry policy
// belongs to the calling stage.
type Provider interface {
	// GenerateText sends a prompt under the named intent profile and returns
	// the text response.
	GenerateText(ctx context.Context, name, prompt string) (string, error)

	// GenerateJSON sends a prompt and unmarshals the JSON response into target.
	// A malformed response yields a ValidationError.
	GenerateJSON(ctx context.Context, name, prompt string, target any) error

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}

// ModerationVerdict is the result of a content moderation check.
type ModerationVerdict struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
}

// Moderator defines the content-moderation capability gateway.
type Moderator interface {
	Moderate(ctx context.Context, text string) (ModerationVerdict, error)
}

// SynthesizedImage is the raw result of one image synthesis call.
type SynthesizedImage struct {
	AssetRef      string // URL or data handle of the generated asset
	RevisedPrompt string // provider-revised prompt, empty if not revised
	Width         int    // 0 if unknown
	Height        int    // 0 if unknown
}

// Synthesizer defines the image-synthesis capability gateway.
type Synthesizer interface {
	// SynthesizeImage generates one image. size is a WxH string or aspect
	// ratio, quality is "standard" or "hd", style is "vivid" or "natural".
	SynthesizeImage(ctx context.Context, prompt, size, quality, style string) (*SynthesizedImage, error)
}

// SearchResult is one hit from the web-search capability.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher defines the web-search capability gateway.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}
