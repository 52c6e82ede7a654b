package config

import (
	"io"
	"log/slog"
	"time"
)

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{
		botToken:  botToken,
		channelID: channelID,
	}
}

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, geminiProject, openaiAPIKey, claudeAPIKey string) *LLM {
	return &LLM{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		openaiAPIKey:   openaiAPIKey,
		claudeAPIKey:   claudeAPIKey,
	}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(secret string, ttl time.Duration) *Auth {
	return &Auth{
		secret: secret,
		ttl:    ttl,
	}
}

// NewPipelineForTest creates a Pipeline config for testing purposes
func NewPipelineForTest(interval time.Duration, batchSize int, backoffMax time.Duration) *Pipeline {
	return &Pipeline{
		interval:   interval,
		batchSize:  batchSize,
		backoffMax: backoffMax,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{
		backend:   backend,
		projectID: projectID,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewAppForTest creates an App config for testing purposes
func NewAppForTest(path string) *App {
	return &App{path: path}
}

func NewLogHandlerForTest(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	return newLogHandler(w, format, level)
}
