package config

import (
	"fmt"
	"time"
)

// defaultTimeout is applied when [llm].timeout is unset (zero).
const defaultTimeout = 120 * time.Second

// ApplyDefaults fills in zero-valued optional fields. Called after Parse and
// before Validate so validation always sees final values.
func (cfg *Config) ApplyDefaults() {
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = defaultTimeout
	}
}

// Validate strictly checks a parsed Config, returning every problem found
// (not just the first) so the CLI can report them all at once, matching the
// teacher's config.Validate style.
func Validate(cfg *Config) []error {
	var errs []error

	switch cfg.LLM.Backend {
	case "openai-compatible", "native-chat":
	case "":
		errs = append(errs, fmt.Errorf("llm.backend is required"))
	default:
		errs = append(errs, fmt.Errorf("llm.backend must be %q or %q, got %q",
			"openai-compatible", "native-chat", cfg.LLM.Backend))
	}

	if cfg.LLM.Host == "" {
		errs = append(errs, fmt.Errorf("llm.host is required"))
	}
	if cfg.LLM.Port == 0 {
		errs = append(errs, fmt.Errorf("llm.port is required"))
	}
	if cfg.LLM.Backend == "native-chat" && cfg.LLM.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model is required for backend %q", "native-chat"))
	}
	if cfg.LLM.ContextLimit <= 0 {
		errs = append(errs, fmt.Errorf("llm.context_limit is required"))
	}

	if len(cfg.Checks) == 0 {
		errs = append(errs, fmt.Errorf("at least one [[checks]] group is required"))
	}

	allIgnoreOnly := len(cfg.Checks) > 0
	for i, g := range cfg.Checks {
		if len(g.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("checks[%d]: pattern is required", i))
		}
		if !g.IsIgnoreGroup() {
			allIgnoreOnly = false
		}
	}
	if allIgnoreOnly && len(cfg.Checks) > 0 {
		errs = append(errs, fmt.Errorf("every [[checks]] group is an ignore group (empty checks list); at least one group must define prompts"))
	}

	return errs
}
