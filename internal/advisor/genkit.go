package advisor

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"go.uber.org/zap"
)

// maxAgentTurns bounds the agent's reasoning iterations per request.
const maxAgentTurns = 3

const weatherToolDescription = "Get current weather for a destination. " +
	"Only use when users specifically ask about weather or temperature."

// GenkitConfig carries the settings for the Gemini-backed generator.
type GenkitConfig struct {
	APIKey        string
	Model         string
	EmbedderModel string
	Weather       WeatherProvider
	Logger        *zap.Logger
}

// GenkitGenerator implements Generator on top of genkit with a registered
// weather tool for the agent path.
type GenkitGenerator struct {
	g           *genkit.Genkit
	weatherTool ai.Tool
	logger      *zap.Logger
}

// InitGenkit initializes genkit with the Google AI plugin, registers the
// weather tool, and returns the generator together with the embedder used
// by the similarity index.
func InitGenkit(ctx context.Context, cfg GenkitConfig) (*GenkitGenerator, ai.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, nil, errors.New("gemini api key is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.APIKey}),
		genkit.WithDefaultModel(cfg.Model),
	)
	if g == nil {
		return nil, nil, errors.New("initializing genkit with googleai provider")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	weatherTool := genkit.DefineTool(g, "getWeather", weatherToolDescription,
		func(toolCtx *ai.ToolContext, input struct {
			Destination string `json:"destination" jsonschema_description:"Destination name to look up"`
		}) (string, error) {
			if cfg.Weather == nil {
				return "Weather lookups are not available", nil
			}
			conditions, _ := cfg.Weather.CurrentConditions(toolCtx.Context, input.Destination)
			logger.Info("weather tool invoked",
				zap.String("destination", input.Destination),
				zap.String("conditions", conditions))
			return conditions, nil
		})

	logger.Info("genkit initialized",
		zap.String("model", cfg.Model),
		zap.String("embedder", cfg.EmbedderModel))

	return &GenkitGenerator{g: g, weatherTool: weatherTool, logger: logger}, embedder, nil
}

// GenerateWithTools runs the tool-augmented agent over the composite input,
// allowing the model to call the weather tool at its discretion.
func (gg *GenkitGenerator) GenerateWithTools(ctx context.Context, system, input string) (string, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithSystem(system),
		ai.WithPrompt(input),
		ai.WithTools(gg.weatherTool),
		ai.WithMaxTurns(maxAgentTurns),
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Complete performs a direct prompt completion without tools.
func (gg *GenkitGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gg.g, ai.WithPrompt(prompt))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
