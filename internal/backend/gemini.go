package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

const defaultGeminiModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when Gemini produces no usable candidate.
var ErrNoCandidates = errors.New("gemini returned no candidates")

// GeminiConfig configures the Google GenAI backend.
type GeminiConfig struct {
	APIKey    string `yaml:"api_key" json:"-"`
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
	Model     string `yaml:"model" json:"model"`

	// GoogleSearch enables search grounding. Grounding chunks become sources.
	GoogleSearch bool    `yaml:"google_search" json:"google_search"`
	MaxTokens    int32   `yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	Temperature  float32 `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
}

// ContentGenerator is the slice of the GenAI models service Gemini needs.
// *genai.Models implements it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini answers with a Gemini model, optionally grounded in Google Search.
type Gemini struct {
	models ContentGenerator
	cfg    GeminiConfig
}

// NewGemini wraps an existing generator.
func NewGemini(models ContentGenerator, cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &Gemini{models: models, cfg: cfg}
}

// DialGemini creates a GenAI client for the Gemini API. The key comes from
// cfg.APIKey, then the env var named by APIKeyEnv, then GEMINI_API_KEY.
func DialGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	key := cfg.APIKey
	if key == "" {
		env := cfg.APIKeyEnv
		if env == "" {
			env = "GEMINI_API_KEY"
		}
		key = os.Getenv(env)
	}
	if key == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewGemini(client.Models, cfg), nil
}

// Answer implements Backend.
func (g *Gemini) Answer(ctx context.Context, q domain.Query) (domain.RawAnswer, error) {
	resp, err := g.models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(UserPrompt(q), genai.RoleUser)},
		g.config(SystemPrompt(q.CharLimit), g.cfg.GoogleSearch))
	if err != nil {
		return domain.RawAnswer{}, fmt.Errorf("gemini %s: %w", g.cfg.Model, err)
	}
	text, sources, err := readCandidate(resp)
	if err != nil {
		return domain.RawAnswer{}, err
	}
	return domain.RawAnswer{Text: text, Sources: sources}, nil
}

// Complete sends a single ungrounded prompt, for the answer checker.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		g.config("", false))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.cfg.Model, err)
	}
	text, _, err := readCandidate(resp)
	return text, err
}

func (g *Gemini) config(system string, search bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.cfg.MaxTokens > 0 {
		cfg.MaxOutputTokens = g.cfg.MaxTokens
	}
	if search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// readCandidate joins the text parts of the first candidate and collects its
// web grounding URIs.
func readCandidate(resp *genai.GenerateContentResponse) (string, []string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", nil, ErrNoCandidates
	}
	cand := resp.Candidates[0]

	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}

	var sources []string
	if gm := cand.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
				sources = append(sources, chunk.Web.URI)
			}
		}
	}
	return text.String(), sources, nil
}
