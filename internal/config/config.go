// Package config loads the command-line tool's configuration from defaults,
// an optional config file and PDFQA_* environment variables.
package config

import (
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

// Config holds all CLI configuration, grouped by concern.
type Config struct {
	Run RunConfig `mapstructure:"run" validate:"required"`
	LLM LLMConfig `mapstructure:"llm" validate:"required"`
	Log LogConfig `mapstructure:"log" validate:"required"`
}

// RunConfig contains the generation run settings.
type RunConfig struct {
	Mode          string        `mapstructure:"mode" validate:"required,oneof=normal pro"`
	NumQA         int           `mapstructure:"num_qa" validate:"gte=1"`
	MaxWorkers    int           `mapstructure:"max_workers" validate:"gte=1"`
	AnswerWorkers int           `mapstructure:"answer_workers" validate:"gte=1"`
	APIRetries    int           `mapstructure:"api_retries" validate:"gte=1"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	PDFDir        string        `mapstructure:"pdf_dir" validate:"required"`
	OutputDir     string        `mapstructure:"output_dir" validate:"required"`
	Extractor     string        `mapstructure:"extractor" validate:"required,oneof=pdf pdftotext"`
	CleanAnswers  bool          `mapstructure:"clean_answers"`
}

// LLMConfig contains the model backend settings.
type LLMConfig struct {
	Backend     string        `mapstructure:"backend" validate:"required,oneof=openai gemini vertex"`
	Model       string        `mapstructure:"model" validate:"required"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	ProjectID   string        `mapstructure:"project_id" validate:"required_if=Backend vertex"`
	Region      string        `mapstructure:"region"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// RunConfig converts the settings into the orchestrator's run configuration.
func (c *Config) RunConfig() services.RunConfig {
	return services.RunConfig{
		Mode:          models.Mode(c.Run.Mode),
		NumQA:         c.Run.NumQA,
		MaxWorkers:    c.Run.MaxWorkers,
		AnswerWorkers: c.Run.AnswerWorkers,
		Retry:         retry.Policy{MaxAttempts: c.Run.APIRetries, Delay: c.Run.RetryDelay},
		Model:         c.LLM.Model,
	}
}

// ModelOptions converts the LLM settings into client options.
func (c *Config) ModelOptions() gcp.ModelOptions {
	return gcp.ModelOptions{
		Backend:     c.LLM.Backend,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		Timeout:     c.LLM.Timeout,
		ProjectID:   c.LLM.ProjectID,
		Region:      c.LLM.Region,
	}
}
