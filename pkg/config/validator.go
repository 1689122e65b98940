package config

import (
	"fmt"
	"net/url"
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

	switch c.Embedding.Backend {
	case "stub", "ollama", "openai":
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Embedding.Backend),
		})
	}

	if c.Embedding.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Embedding.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if _, err := url.Parse(c.Embedding.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "invalid embedding base URL",
		})
	}

	switch c.Database.Backend {
	case "memory", "pgvector":
	default:
		errors = append(errors, ValidationError{
			Field:   "database.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Database.Backend),
		})
	}

	if c.Database.Backend == "pgvector" && c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "connection string is required for the pgvector backend",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if len(c.Chunker.Delimiter) != 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.delimiter",
			Message: "delimiter must be a single character",
		})
	}

	if c.Search.Results < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.results",
			Message: "results must be positive",
		})
	}

	if c.Search.EmbedTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.embed_timeout_seconds",
			Message: "embed_timeout_seconds must be positive",
		})
	}

	return errors
}
