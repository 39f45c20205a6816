package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Database config
	if c.Database.URL != "" {
		parsed, err := url.Parse(c.Database.URL)
		if err != nil || !strings.HasPrefix(parsed.Scheme, "postgres") {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be positive",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Fetch config
	if c.Fetch.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetch.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.Fetch.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetch.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	if c.Fetch.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Crawler config
	if c.Crawler.DefaultMaxHits < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawler.default_max_hits",
			Message: "default_max_hits must be positive",
		})
	}

	// Validate Scheduler config
	if c.Scheduler.CheckIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.check_interval_seconds",
			Message: "check_interval_seconds must be positive",
		})
	}

	return errors
}
