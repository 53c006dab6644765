package llm

import (
	"fmt"

	"github.com/duskforge/vigil/internal/config"
)

// New builds the configured backend variant from an [llm] config section,
// per spec.md §4.C.1.
func New(cfg config.LLM) (Client, error) {
	baseURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	switch cfg.Backend {
	case "openai-compatible":
		return NewOpenAICompatibleClient(baseURL+"/v1", cfg.Model, cfg.ContextLimit, cfg.Timeout), nil
	case "native-chat":
		return NewNativeChatClient(baseURL, cfg.Model, cfg.ContextLimit, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
