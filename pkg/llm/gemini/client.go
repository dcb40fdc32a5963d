package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for dimension probing
	_ "image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/tracker"
)

// Client implements llm.Provider, llm.Moderator and llm.Synthesizer for
// Google Gemini / Imagen.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	modelName   string
	imageModel  string
	profiles    map[string]string // intent -> model override
	tracker     *tracker.Tracker
	logPath     string
	assetDir    string

	mu sync.RWMutex
}

// moderationPrompt asks the model for a strict JSON verdict.
const moderationPrompt = `You are a content safety reviewer. Inspect the text below and respond with JSON only:
{"flagged": <bool>, "categories": [<strings among "violence","sexual","hate","self-harm","dangerous">]}
Flag only content a mainstream travel publication could not print.

TEXT:
%s`

// sizeToAspectRatio maps WxH size strings to Imagen aspect ratios.
var sizeToAspectRatio = map[string]string{
	"1024x1024": "1:1",
	"1792x1024": "16:9",
	"1024x1792": "9:16",
	"1:1":       "1:1",
	"16:9":      "16:9",
	"9:16":      "9:16",
	"4:3":       "4:3",
	"3:4":       "3:4",
}

// NewClient creates a new Gemini client.
func NewClient(cfg config.LLMConfig, logPath, assetDir string, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t, logPath: logPath, assetDir: assetDir}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = cfg.Key
	c.modelName = cfg.Model
	c.imageModel = cfg.ImageModel
	c.profiles = cfg.Profiles

	if c.modelName == "" {
		c.modelName = "gemini-2.5-flash"
	}
	if c.imageModel == "" {
		c.imageModel = "imagen-4.0-generate-001"
	}

	if c.apiKey == "" {
		c.genaiClient = nil
		return nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client

	if err := c.validateModel(context.Background()); err != nil {
		slog.Warn("Gemini model validation failed (proceeding anyway)", "error", err)
		// Startup must survive a flaky or rate-limited API. A truly bad
		// key/model fails on the first generation call instead.
	}

	return nil
}

// Close cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

// resolveModel picks the model for the given intent profile.
func (c *Client) resolveModel(name string) (string, *genai.GenerateContentConfig) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	modelName := c.modelName
	if override, ok := c.profiles[name]; ok && override != "" {
		modelName = override
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.8),
	}
	return modelName, cfg
}

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	c.mu.RLock()
	client := c.genaiClient
	c.mu.RUnlock()

	if client == nil {
		return "", &llm.ProviderError{Provider: "gemini", Transient: false, Err: fmt.Errorf("client not configured")}
	}

	modelName, cfg := c.resolveModel(name)

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), cfg)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.tracker.TrackAPIFailure("gemini")
		return "", llm.Classify("gemini", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		c.tracker.TrackAPIFailure("gemini")
		return "", &llm.ValidationError{Reason: "empty completion", Err: err}
	}

	c.logPrompt(name, prompt, text)
	c.tracker.TrackAPISuccess("gemini")
	return text, nil
}

// GenerateJSON sends a prompt and unmarshals the response into the target struct.
func (c *Client) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	c.mu.RLock()
	client := c.genaiClient
	c.mu.RUnlock()

	if client == nil {
		return &llm.ProviderError{Provider: "gemini", Transient: false, Err: fmt.Errorf("client not configured")}
	}

	modelName, cfg := c.resolveModel(name)
	cfg.ResponseMIMEType = "application/json"

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), cfg)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.tracker.TrackAPIFailure("gemini")
		return llm.Classify("gemini", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		c.tracker.TrackAPIFailure("gemini")
		return &llm.ValidationError{Reason: "empty completion", Err: err}
	}

	cleaned := llm.CleanJSONBlock(text)
	c.logPrompt(name, prompt, cleaned)

	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		c.tracker.TrackAPIFailure("gemini")
		return &llm.ValidationError{Reason: "malformed JSON response", Err: err}
	}

	c.tracker.TrackAPISuccess("gemini")
	return nil
}

// Moderate implements llm.Moderator via a JSON-mode verdict call.
func (c *Client) Moderate(ctx context.Context, text string) (llm.ModerationVerdict, error) {
	var verdict llm.ModerationVerdict
	err := c.GenerateJSON(ctx, "moderation", fmt.Sprintf(moderationPrompt, text), &verdict)
	return verdict, err
}

// SynthesizeImage implements llm.Synthesizer using Imagen. The generated
// bytes are written under assetDir and the asset ref is a file URL.
func (c *Client) SynthesizeImage(ctx context.Context, prompt, size, quality, style string) (*llm.SynthesizedImage, error) {
	c.mu.RLock()
	client := c.genaiClient
	model := c.imageModel
	c.mu.RUnlock()

	if client == nil {
		return nil, &llm.ProviderError{Provider: "imagen", Transient: false, Err: fmt.Errorf("client not configured")}
	}

	aspect, ok := sizeToAspectRatio[size]
	if !ok {
		aspect = "1:1"
	}

	// Style is a prompt modifier for Imagen, not an API knob.
	styled := prompt
	if style == "natural" {
		styled += ", natural lighting, realistic photographic style"
	} else {
		styled += ", vivid colors, dramatic lighting"
	}

	resp, err := client.Models.GenerateImages(ctx, model, styled, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspect,
	})
	if err != nil {
		c.logPrompt("image", styled, fmt.Sprintf("ERROR: %v", err))
		c.tracker.TrackAPIFailure("imagen")
		return nil, llm.Classify("imagen", err)
	}

	if len(resp.GeneratedImages) == 0 {
		c.tracker.TrackAPIFailure("imagen")
		return nil, &llm.ContentPolicyError{Provider: "imagen", Err: fmt.Errorf("no images returned (filtered)")}
	}

	gen := resp.GeneratedImages[0]
	if gen.RAIFilteredReason != "" {
		c.tracker.TrackAPIFailure("imagen")
		return nil, &llm.ContentPolicyError{Provider: "imagen", Err: fmt.Errorf("filtered: %s", gen.RAIFilteredReason)}
	}

	result := &llm.SynthesizedImage{RevisedPrompt: gen.EnhancedPrompt}

	switch {
	case gen.Image != nil && len(gen.Image.ImageBytes) > 0:
		ref, w, h, err := c.saveAsset(gen.Image.ImageBytes)
		if err != nil {
			c.tracker.TrackAPIFailure("imagen")
			return nil, &llm.ProviderError{Provider: "imagen", Transient: true, Err: err}
		}
		result.AssetRef = ref
		result.Width = w
		result.Height = h
	case gen.Image != nil && gen.Image.GCSURI != "":
		result.AssetRef = gen.Image.GCSURI
	default:
		c.tracker.TrackAPIFailure("imagen")
		return nil, &llm.ValidationError{Reason: "image result missing both bytes and URI"}
	}

	c.logPrompt("image", styled, result.AssetRef)
	c.tracker.TrackAPISuccess("imagen")
	return result, nil
}

// saveAsset writes image bytes to the asset dir and probes dimensions.
func (c *Client) saveAsset(data []byte) (ref string, w, h int, err error) {
	if err := os.MkdirAll(c.assetDir, 0o755); err != nil {
		return "", 0, 0, fmt.Errorf("failed to create asset dir: %w", err)
	}

	name := uuid.NewString() + ".png"
	path := filepath.Join(c.assetDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, 0, fmt.Errorf("failed to write asset: %w", err)
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), w, h, nil
}

// HealthCheck verifies that the provider is configured.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.genaiClient == nil {
		return fmt.Errorf("gemini client not configured (missing API key)")
	}
	return nil
}

func (c *Client) logPrompt(name, prompt, response string) {
	if c.logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return
	}

	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	wrapped := llm.WordWrap(response, 80)
	entry := fmt.Sprintf("[%s] PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		timestamp, name, prompt, wrapped, strings.Repeat("-", 80))

	_, _ = f.WriteString(entry)
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("candidate contained no text parts")
	}
	return sb.String(), nil
}

// validateModel checks if the configured model is available for the API key.
func (c *Client) validateModel(ctx context.Context) error {
	name := c.modelName
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	_, err := c.genaiClient.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", c.modelName)
		return nil
	}

	slog.Warn("Gemini model validation failed, fetching available models...", "model", c.modelName, "error", err)

	iter, listErr := c.genaiClient.Models.List(ctx, nil)
	if listErr != nil {
		slog.Warn("Failed to list models for recovery", "error", listErr)
		return nil
	}

	var available []string
	for {
		resp, nextErr := iter.Next(ctx)
		if nextErr == iterator.Done {
			break
		}
		if nextErr != nil {
			break
		}
		if strings.Contains(strings.ToLower(resp.Name), "gemini") {
			available = append(available, resp.Name)
		}
	}

	slog.Error("Configured model not found", "configured", c.modelName, "available", strings.Join(available, ", "))
	return nil
}
