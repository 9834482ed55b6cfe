package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"golang.org/x/time/rate"
)

// converseAPI is the slice of the Bedrock Runtime client the AI finder needs.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// defaultFinderModelID is a cost-effective model for the prompt-finding task
// itself; using a premium model to find cost savings would be ironic.
const defaultFinderModelID = "amazon.nova-lite-v1:0"

// maxFinderContentBytes caps how much source is sent per analysis call.
const maxFinderContentBytes = 16 * 1024

// AIPromptFinder asks Bedrock to identify prompts in source code. It is an
// optional supplement to RegexPromptFinder: any error from it causes the
// detector to fall back to the regex path.
type AIPromptFinder struct {
	client  converseAPI
	modelID string
	limiter *rate.Limiter
}

// NewAIPromptFinder wraps a Bedrock Runtime client. Calls are rate limited to
// one per second with a small burst, so scanning a large tree cannot flood the
// Converse API.
func NewAIPromptFinder(client converseAPI, modelID string) *AIPromptFinder {
	if modelID == "" {
		modelID = defaultFinderModelID
	}
	return &AIPromptFinder{
		client:  client,
		modelID: modelID,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// NewAIPromptFinderFromEnv builds an AI prompt finder from the ambient AWS
// configuration. It is opt-in: unless GENAI_AI_PROMPT_FINDER is set to a
// truthy value an error is returned and the caller stays on the regex path.
// GENAI_PROMPT_FINDER_MODEL overrides the default model.
func NewAIPromptFinderFromEnv(ctx context.Context) (*AIPromptFinder, error) {
	switch strings.ToLower(os.Getenv("GENAI_AI_PROMPT_FINDER")) {
	case "1", "true", "yes":
	default:
		return nil, fmt.Errorf("AI prompt finder not enabled (set GENAI_AI_PROMPT_FINDER=true)")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewAIPromptFinder(bedrockruntime.NewFromConfig(cfg), os.Getenv("GENAI_PROMPT_FINDER_MODEL")), nil
}

const finderInstruction = `Identify LLM prompts defined in the following source code.
Respond with ONLY a JSON array, no prose. Each element must have the keys
"prompt_preview" (first 200 characters of the prompt), "estimated_tokens"
(integer) and "line" (1-based line of the assignment). Respond with [] if the
file defines no prompts.`

type aiPromptResult struct {
	PromptPreview   string `json:"prompt_preview"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Line            int    `json:"line"`
}

// FindPrompts sends the file content to the model and parses its JSON answer.
// Every failure mode returns an error so the caller can fall back.
func (f *AIPromptFinder) FindPrompts(ctx context.Context, content, filePath string) ([]Prompt, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if len(content) > maxFinderContentBytes {
		content = content[:maxFinderContentBytes]
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(f.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{
						Value: fmt.Sprintf("%s\n\nFile: %s\n\n```\n%s\n```", finderInstruction, filePath, content),
					},
				},
			},
		},
	}

	output, err := f.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("converse call failed: %w", err)
	}

	text, err := converseText(output)
	if err != nil {
		return nil, err
	}

	var results []aiPromptResult
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &results); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	prompts := make([]Prompt, 0, len(results))
	for _, r := range results {
		prompts = append(prompts, Prompt{
			Text:   r.PromptPreview,
			Length: r.EstimatedTokens * charsPerToken,
			Line:   r.Line,
		})
	}
	return prompts, nil
}

// converseText pulls the first text block out of a Converse response.
func converseText(output *bedrockruntime.ConverseOutput) (string, error) {
	message, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected converse output type %T", output.Output)
	}
	for _, block := range message.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("no text content in converse response")
}

// extractJSONArray trims any prose or code fencing the model wrapped around
// its JSON answer.
func extractJSONArray(text string) string {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
