// Package llm wraps the language-model calls: entity/relation extraction
// over crawled text and embedding generation for semantic search.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/pkg/extract"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

const extractionPrompt = `You are an expert at structured information extraction.

Analyze this text and extract:
1. Entities: people, places, organizations, concepts, dates
2. Relations: links between the entities

IMPORTANT: return ONLY valid JSON, with no text before or after.

Expected format:
{
  "entities": [
    {"name": "Entity name", "type": "Person|Location|Organization|Concept|Date"}
  ],
  "relations": [
    {"source": "Entity 1", "target": "Entity 2", "type": "relation_type"}
  ]
}

TEXT TO ANALYZE:
%s

JSON:`

// AnalyzerConfig configures the extraction model.
type AnalyzerConfig struct {
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Logger      *zap.Logger
}

// Analyzer derives entities and relations from page text.
type Analyzer struct {
	config AnalyzerConfig
	llm    llms.Model
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer, filling unset config fields with defaults.
func NewAnalyzer(config AnalyzerConfig) (*Analyzer, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4000
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize analyzer model: %w", err)
	}

	return &Analyzer{config: config, llm: model, logger: config.Logger}, nil
}

// Analyze runs the extraction prompt over text, truncated to the same bound
// as stored content. A response the model garbles yields an empty Analysis;
// only transport-level failures return an error.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.Analysis, error) {
	prompt := fmt.Sprintf(extractionPrompt, extract.Truncate(text))

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := a.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(a.config.MaxTokens),
		llms.WithTemperature(a.config.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &models.Analysis{}, nil
	}

	analysis := ParseAnalysis(resp.Choices[0].Content)
	a.logger.Debug("analysis complete",
		zap.Int("entities", len(analysis.Entities)),
		zap.Int("relations", len(analysis.Relations)),
	)
	return analysis, nil
}

// ParseAnalysis decodes the model's JSON reply. Models often wrap the JSON
// in markdown code fences; those are stripped first. Anything that still
// fails to decode yields an empty Analysis.
func ParseAnalysis(raw string) *models.Analysis {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return &models.Analysis{}
	}
	return &analysis
}
