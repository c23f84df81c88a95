// Package advisor implements the retrieval-augmented question-answering
// pipeline: rebuild a per-destination similarity index from its notes,
// retrieve the most relevant chunks, and answer through a tool-augmented
// agent with a direct-completion fallback.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wayfarerlabs/wayfarer/internal/travel"
)

const (
	defaultTopK = 2

	systemPrompt = "You are a concise AI travel advisor. Answer questions about destinations " +
		"using the provided context. Only use the weather tool if users specifically ask about " +
		"weather or temperature. Keep responses focused and relevant to the question asked."

	apologyAnswer = "I apologize, but I'm experiencing technical difficulties. " +
		"Please try again later or contact support if the issue persists."
	degradedAnswer = "I'm experiencing technical difficulties. Please try again later."

	truncatedContextLimit = 200
)

var errMissingRepository = errors.New("repository is required")

// Repository provides destination data for the pipeline.
type Repository interface {
	GetDestination(ctx context.Context, destinationID uint) (travel.Destination, error)
	ListNotes(ctx context.Context, destinationID uint) ([]travel.Note, error)
}

// WeatherProvider returns a human-readable weather line and whether the
// lookup succeeded; it degrades to descriptive strings rather than errors.
type WeatherProvider interface {
	CurrentConditions(ctx context.Context, destinationName string) (string, bool)
}

// Generator produces model completions.
type Generator interface {
	// GenerateWithTools runs the tool-augmented agent over the composite input.
	GenerateWithTools(ctx context.Context, system, input string) (string, error)
	// Complete performs a direct prompt completion without tools.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of a question-answering request.
type Result struct {
	Answer  string
	Weather *string
}

// ServiceConfig carries the dependencies for constructing a Service.
// Embedder, Generator, and Weather are optional: a missing embedder disables
// retrieval, a missing generator forces the degraded textual answer, and a
// missing weather provider skips the fallback weather lookup.
type ServiceConfig struct {
	Repository Repository
	Embedder   ai.Embedder
	Generator  Generator
	Weather    WeatherProvider
	Logger     *zap.Logger
	TopK       int
	Retry      RetryConfig
	// Pacer throttles outbound model calls; nil disables pacing.
	Pacer *rate.Limiter
	// Breaker guards model calls; nil disables the circuit breaker.
	Breaker *gobreaker.CircuitBreaker
}

// Service orchestrates the question-answering pipeline.
type Service struct {
	repo     Repository
	embedder ai.Embedder
	gen      Generator
	weather  WeatherProvider
	logger   *zap.Logger
	topK     int
	retry    RetryConfig
	pacer    *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.Delay == 0 {
		retry = DefaultRetryConfig()
	}

	return &Service{
		repo:     cfg.Repository,
		embedder: cfg.Embedder,
		gen:      cfg.Generator,
		weather:  cfg.Weather,
		logger:   logger,
		topK:     topK,
		retry:    retry,
		pacer:    cfg.Pacer,
		breaker:  cfg.Breaker,
	}, nil
}

// Answer resolves the destination, rebuilds its similarity index from the
// current notes, and produces an answer. The only error returned is a
// missing destination; every pipeline failure degrades to a textual answer.
func (s *Service) Answer(ctx context.Context, destinationID uint, question string) (Result, error) {
	destination, err := s.repo.GetDestination(ctx, destinationID)
	if err != nil {
		if errors.Is(err, travel.ErrDestinationNotFound) {
			return Result{}, err
		}
		s.logger.Error("destination lookup failed",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		return Result{Answer: apologyAnswer}, nil
	}

	retrieved := s.retrieveContext(ctx, destinationID, question)

	// Agent attempt first, explicit fallback second.
	if s.gen != nil {
		input := fmt.Sprintf("Destination: %s\nContext: %s\nQuestion: %s",
			destination.Name, retrieved, question)
		answer, err := s.generate(ctx, func(callCtx context.Context) (string, error) {
			return s.gen.GenerateWithTools(callCtx, systemPrompt, input)
		})
		if err == nil && strings.TrimSpace(answer) != "" {
			// The agent folds any weather it consulted into the answer text.
			return Result{Answer: strings.TrimSpace(answer)}, nil
		}
		s.logger.Warn("agent generation failed, falling back to direct completion",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
	}

	return s.fallbackAnswer(ctx, destination.Name, retrieved, question), nil
}

// retrieveContext rebuilds the destination's index and returns the topK
// chunks joined by newlines; any failure yields an empty context.
func (s *Service) retrieveContext(ctx context.Context, destinationID uint, question string) string {
	if s.embedder == nil {
		return ""
	}

	notes, err := s.repo.ListNotes(ctx, destinationID)
	if err != nil {
		s.logger.Warn("note listing failed during retrieval",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		return ""
	}
	if len(notes) == 0 {
		return ""
	}

	var chunks []string
	for _, note := range notes {
		chunks = append(chunks, splitText(note.Content, chunkSize, chunkOverlap)...)
	}

	index, err := buildIndex(ctx, s.embedder, chunks)
	if err != nil {
		s.logger.Warn("index build failed",
			zap.Uint("destination_id", destinationID),
			zap.Int("chunks", len(chunks)),
			zap.Error(err))
		return ""
	}

	results, err := index.search(ctx, question, s.topK)
	if err != nil {
		s.logger.Warn("similarity search failed",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		return ""
	}

	return strings.Join(results, "\n")
}

// fallbackAnswer performs the direct-completion path: fetch weather, compose
// the prompt, and degrade to a truncated-context answer when completion fails.
func (s *Service) fallbackAnswer(ctx context.Context, destinationName, retrieved, question string) Result {
	var weatherLine string
	var weatherInfo *string
	if s.weather != nil {
		if conditions, ok := s.weather.CurrentConditions(ctx, destinationName); ok {
			weatherLine = conditions
			weatherInfo = &conditions
		}
	}

	if s.gen != nil {
		prompt := composePrompt(retrieved, weatherLine, question)
		answer, err := s.generate(ctx, func(callCtx context.Context) (string, error) {
			return s.gen.Complete(callCtx, prompt)
		})
		if err == nil && strings.TrimSpace(answer) != "" {
			return Result{Answer: strings.TrimSpace(answer), Weather: weatherInfo}
		}
		s.logger.Error("direct completion failed", zap.Error(err))
	}

	if retrieved != "" {
		return Result{Answer: truncateContext(retrieved), Weather: weatherInfo}
	}
	return Result{Answer: degradedAnswer, Weather: weatherInfo}
}

func composePrompt(retrieved, weatherLine, question string) string {
	var parts []string
	if retrieved != "" {
		parts = append(parts, "Context: "+retrieved)
	}
	if weatherLine != "" {
		parts = append(parts, "Weather: "+weatherLine)
	}
	parts = append(parts,
		"Question: "+question,
		"Provide a concise, helpful answer based on the available information.")
	return strings.Join(parts, "\n")
}

func truncateContext(retrieved string) string {
	runes := []rune(retrieved)
	if len(runes) > truncatedContextLimit {
		runes = runes[:truncatedContextLimit]
	}
	return fmt.Sprintf("Based on available information: %s...", string(runes))
}

// generate runs a model call through the pacer, circuit breaker, and retry loop.
func (s *Service) generate(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error
	delay := s.retry.Delay

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		answer, err := s.execute(ctx, call)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", err
		}
		if !retryableError(err) || attempt == s.retry.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		if next := delay * 2; next <= s.retry.MaxDelay {
			delay = next
		}
	}

	return "", lastErr
}

func (s *Service) execute(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	if s.breaker == nil {
		return call(ctx)
	}
	result, err := s.breaker.Execute(func() (any, error) {
		return call(ctx)
	})
	if err != nil {
		return "", err
	}
	answer, _ := result.(string)
	return answer, nil
}
