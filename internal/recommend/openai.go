// Package recommend asks a chat-completion model for ranked game
// suggestions. The result is an opaque JSON payload; the store caches it
// without understanding its structure.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/playnext/playnext/internal/types"
)

// Compile-time interface check
var _ Generator = (*OpenAI)(nil)

// Generator produces a recommendation payload for a user.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
	ModelName() string
}

// ChatService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Request carries everything the prompt builder needs.
type Request struct {
	Type     types.RecType
	Library  []types.OwnedGame
	Summary  *types.StatusSummary
	Excluded []string
	Source   *types.GameDetails
}

// OpenAI implements Generator using OpenAI's chat completion API.
type OpenAI struct {
	chat  ChatService
	model openai.ChatModel
}

// NewOpenAI creates a new OpenAI recommendation generator.
func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		chat:  client.Chat.Completions,
		model: openai.ChatModel(model),
	}
}

const systemPrompt = `You are a game recommendation engine. Reply with a JSON object of the form
{"recommendations": [{"name": string, "reason": string}, ...]}
ordered from strongest to weakest match. Reply with JSON only, no prose.`

// Generate asks the model for suggestions and returns the raw JSON payload.
func (o *OpenAI) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		}),
		Model: openai.F(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("recommendation generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("recommendation generation failed: no choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("recommendation generation failed: model returned invalid JSON")
	}
	return json.RawMessage(content), nil
}

// ModelName returns the chat model name.
func (o *OpenAI) ModelName() string {
	return string(o.model)
}

// buildPrompt renders the user's library, labels and exclusions into a
// single prompt. Only the most-played slice of the library is included to
// keep the prompt bounded.
func buildPrompt(req Request) string {
	var b strings.Builder

	switch req.Type {
	case types.RecTypeSimilar:
		name := "the given game"
		if req.Source != nil {
			name = req.Source.Name
		}
		fmt.Fprintf(&b, "Recommend 10 games similar to %s.\n", name)
		if req.Source != nil && len(req.Source.Genres) > 0 {
			fmt.Fprintf(&b, "Its genres: %s.\n", strings.Join(req.Source.Genres, ", "))
		}
	case types.RecTypeLibrary:
		b.WriteString("Recommend 10 games from outside this library that fit the owner's taste.\n")
	default:
		b.WriteString("Recommend 10 games for this player.\n")
	}

	if len(req.Library) > 0 {
		b.WriteString("Most played games (minutes):\n")
		limit := len(req.Library)
		if limit > 25 {
			limit = 25
		}
		for _, g := range req.Library[:limit] {
			fmt.Fprintf(&b, "- %s (%d)\n", g.Name, g.PlaytimeForever)
		}
	}

	if req.Summary != nil {
		writeRefs(&b, "Finished", req.Summary.Played)
		writeRefs(&b, "Liked", req.Summary.Liked)
		writeRefs(&b, "Not interested in", req.Summary.NotInterested)
	}

	if len(req.Excluded) > 0 {
		fmt.Fprintf(&b, "Never recommend: %s.\n", strings.Join(req.Excluded, ", "))
	}

	return b.String()
}

func writeRefs(b *strings.Builder, label string, refs []types.GameRef) {
	if len(refs) == 0 {
		return
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	fmt.Fprintf(b, "%s: %s.\n", label, strings.Join(names, ", "))
}
