// Package config parses and strictly validates vigil's TOML configuration
// file: an [llm] section and an ordered list of [[checks]] groups.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the parsed, validated configuration for one daemon run.
type Config struct {
	LLM    LLM
	Checks []CheckGroup
}

// LLM holds the [llm] section.
type LLM struct {
	Backend      string // "openai-compatible" | "native-chat"
	Host         string
	Port         int
	Model        string
	Timeout      time.Duration
	ContextLimit int
}

// CheckGroup is one [[checks]] table: an ordered list of glob patterns and
// an ordered list of prompts. A group with no prompts is an ignore group —
// its patterns feed the File Filter instead of producing scan work.
type CheckGroup struct {
	Patterns []string
	Prompts  []string
}

// IsIgnoreGroup reports whether this group contributes only to the File
// Filter (spec.md §3's "ignore group").
func (g CheckGroup) IsIgnoreGroup() bool {
	return len(g.Prompts) == 0
}

// rawConfig mirrors the on-disk TOML shape before splitting comma-joined
// pattern strings and resolving defaults.
type rawLLM struct {
	Backend      string `toml:"backend"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Model        string `toml:"model"`
	Timeout      int64  `toml:"timeout"`
	ContextLimit int    `toml:"context_limit"`
}

type rawCheckGroup struct {
	Pattern string   `toml:"pattern"`
	Checks  []string `toml:"checks"`
}

type rawConfig struct {
	LLM    rawLLM          `toml:"llm"`
	Checks []rawCheckGroup `toml:"checks"`
}

var llmAllowedKeys = map[string]bool{
	"backend": true, "host": true, "port": true, "model": true,
	"timeout": true, "context_limit": true,
}

var checksAllowedKeys = map[string]bool{
	"pattern": true, "checks": true,
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw TOML bytes into a Config, enforcing the strict schema
// described in spec.md §6: unknown top-level sections are fatal, unknown
// keys under [llm] or [[checks]] are fatal, and a legacy top-level
// `checks = ["...", ...]` array of strings is converted to a single
// CheckGroup with pattern "*".
func Parse(data []byte) (*Config, error) {
	legacyChecks, isLegacy := legacyChecksArray(data)

	var raw rawConfig
	var meta toml.MetaData
	var err error
	if isLegacy {
		var legacy struct {
			LLM    rawLLM   `toml:"llm"`
			Checks []string `toml:"checks"`
		}
		meta, err = toml.Decode(string(data), &legacy)
		raw.LLM = legacy.LLM
	} else {
		meta, err = toml.Decode(string(data), &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	if err := checkUnknownTopLevel(meta); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys(meta, []string{"llm"}, llmAllowedKeys); err != nil {
		return nil, err
	}
	// Keys inside [[checks]] tables carry no array index (["checks", "pattern"]).
	if err := checkUnknownKeys(meta, []string{"checks"}, checksAllowedKeys); err != nil {
		return nil, err
	}

	cfg := &Config{
		LLM: LLM{
			Backend:      raw.LLM.Backend,
			Host:         raw.LLM.Host,
			Port:         raw.LLM.Port,
			Model:        raw.LLM.Model,
			Timeout:      time.Duration(raw.LLM.Timeout) * time.Second,
			ContextLimit: raw.LLM.ContextLimit,
		},
	}

	if isLegacy {
		cfg.Checks = []CheckGroup{{Patterns: []string{"*"}, Prompts: legacyChecks}}
		return cfg, nil
	}

	for _, rc := range raw.Checks {
		cfg.Checks = append(cfg.Checks, CheckGroup{
			Patterns: splitPatterns(rc.Pattern),
			Prompts:  rc.Checks,
		})
	}

	return cfg, nil
}

// legacyChecksArray detects the pre-group config shape: a top-level
// `checks = ["prompt", ...]` array of bare strings rather than an array of
// [[checks]] tables. BurntSushi/toml would otherwise fail to decode this
// into rawConfig.Checks ([]rawCheckGroup), so it must be probed for first.
func legacyChecksArray(data []byte) ([]string, bool) {
	var probe struct {
		Checks []string `toml:"checks"`
	}
	if _, err := toml.Decode(string(data), &probe); err != nil {
		return nil, false
	}
	if len(probe.Checks) == 0 {
		return nil, false
	}
	// Only treat this as the legacy shape if there is no [[checks]] table
	// array present — a document can't sensibly mix both shapes.
	if bytes.Contains(data, []byte("[[checks]]")) {
		return nil, false
	}
	return probe.Checks, true
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkUnknownTopLevel(meta toml.MetaData) error {
	allowed := map[string]bool{"llm": true, "checks": true}
	for _, k := range meta.Keys() {
		if len(k) != 1 {
			continue
		}
		if !allowed[k[0]] {
			return fmt.Errorf("unknown top-level section %q", k[0])
		}
	}
	for _, u := range meta.Undecoded() {
		if len(u) == 1 && !allowed[u[0]] {
			return fmt.Errorf("unknown top-level section %q", u[0])
		}
	}
	return nil
}

// checkUnknownKeys walks meta.Undecoded() looking for keys nested under the
// given prefix path (e.g. ["llm"] or ["checks"]) that aren't in allowed.
func checkUnknownKeys(meta toml.MetaData, prefix []string, allowed map[string]bool) error {
	for _, u := range meta.Undecoded() {
		if len(u) != len(prefix)+1 {
			continue
		}
		matches := true
		for i, p := range prefix {
			if u[i] != p {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		key := u[len(prefix)]
		if !allowed[key] {
			accepted := acceptedKeysList(allowed)
			return fmt.Errorf("unknown key %q under [%s]; accepted keys: %s",
				key, strings.Join(prefix, "."), accepted)
		}
	}
	return nil
}

func acceptedKeysList(allowed map[string]bool) string {
	keys := make([]string, 0, len(allowed))
	for k := range allowed {
		keys = append(keys, k)
	}
	// deterministic order without sort dependency churn across calls
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return strings.Join(keys, ", ")
}
