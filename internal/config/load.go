package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PDFQA_RUN_NUM_QA.
const EnvPrefix = "PDFQA"

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"mode":           "run.mode",
	"num-qa":         "run.num_qa",
	"max-workers":    "run.max_workers",
	"answer-workers": "run.answer_workers",
	"retries":        "run.api_retries",
	"retry-delay":    "run.retry_delay",
	"pdf-dir":        "run.pdf_dir",
	"output-dir":     "run.output_dir",
	"extractor":      "run.extractor",
	"clean-answers":  "run.clean_answers",
	"backend":        "llm.backend",
	"model":          "llm.model",
	"base-url":       "llm.base_url",
	"temperature":    "llm.temperature",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.mode", "normal")
	v.SetDefault("run.num_qa", 10)
	v.SetDefault("run.max_workers", 20)
	v.SetDefault("run.answer_workers", 10)
	v.SetDefault("run.api_retries", 3)
	v.SetDefault("run.retry_delay", "2s")
	v.SetDefault("run.pdf_dir", "pdf_files")
	v.SetDefault("run.output_dir", "output")
	v.SetDefault("run.extractor", "pdf")
	v.SetDefault("run.clean_answers", false)

	v.SetDefault("llm.backend", "openai")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.project_id", "")
	v.SetDefault("llm.region", "us-central1")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds the configuration. Precedence, highest first: flags that were
// set explicitly, environment, config file, defaults. configFile may be empty.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cfg against its struct tags and reports every failing field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
