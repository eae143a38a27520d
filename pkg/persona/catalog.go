// Package persona holds the system-prompt catalog and the few-shot
// example bank used during prompt composition. Built-in entries are
// compiled in; custom personas can be loaded from JSON files in the data
// directory and hot-reloaded on change.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultKey is the persona used when no persona is requested or the
// requested key is unknown.
const DefaultKey = "default"

// Persona is a named system-prompt variant.
type Persona struct {
	Key          string `json:"key"`
	SystemPrompt string `json:"system_prompt"`
}

// builtins are always available and cannot be removed at runtime.
var builtins = map[string]string{
	DefaultKey:     "You are a helpful assistant providing concise and accurate answers. Maintain context from the conversation history.",
	"concise":      "You are a helpful assistant. Answer in as few words as possible while staying accurate. Maintain context from the conversation history.",
	"detailed":     "You are a thorough assistant. Provide detailed, well-structured answers with relevant background. Maintain context from the conversation history.",
	"friendly":     "You are a warm, friendly assistant. Keep a casual, encouraging tone while staying accurate. Maintain context from the conversation history.",
	"professional": "You are a professional assistant. Answer formally and precisely, as if advising a business client. Maintain context from the conversation history.",
}

// Catalog resolves persona keys to system prompts. Lookups never fail:
// unknown keys fall back to the default persona.
type Catalog struct {
	mu     sync.RWMutex
	custom map[string]string
	dir    string
}

// NewCatalog creates a catalog with only the built-in personas.
func NewCatalog() *Catalog {
	return &Catalog{custom: make(map[string]string)}
}

// Resolve returns the system prompt for a persona key, falling back to
// the default persona when the key is unknown or empty.
func (c *Catalog) Resolve(key string) string {
	if key == "" {
		key = DefaultKey
	}

	c.mu.RLock()
	prompt, ok := c.custom[key]
	c.mu.RUnlock()
	if ok {
		return prompt
	}

	if prompt, ok := builtins[key]; ok {
		return prompt
	}
	return builtins[DefaultKey]
}

// Has reports whether a persona key resolves to its own entry rather
// than the default fallback.
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	_, custom := c.custom[key]
	c.mu.RUnlock()
	if custom {
		return true
	}
	_, ok := builtins[key]
	return ok
}

// Keys returns all available persona keys, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(builtins)+len(c.custom))
	for k := range builtins {
		seen[k] = struct{}{}
	}
	for k := range c.custom {
		seen[k] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDir loads custom persona definitions from JSON files in dir.
// Invalid files are logged and skipped; a missing directory is not an
// error. The previously loaded custom set is replaced wholesale so that
// deleted files disappear on reload.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read personas directory: %w", err)
	}

	loaded := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read persona file, skipping")
			continue
		}

		if err := validatePersonaDocument(data); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Invalid persona file, skipping")
			continue
		}

		var p Persona
		if err := json.Unmarshal(data, &p); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse persona file, skipping")
			continue
		}

		loaded[p.Key] = p.SystemPrompt
	}

	c.mu.Lock()
	c.custom = loaded
	c.dir = dir
	c.mu.Unlock()

	log.Info().Int("count", len(loaded)).Str("dir", dir).Msg("Custom personas loaded")
	return nil
}

// Reload re-reads the directory last passed to LoadDir. It is a no-op
// when no directory was ever loaded.
func (c *Catalog) Reload() error {
	c.mu.RLock()
	dir := c.dir
	c.mu.RUnlock()

	if dir == "" {
		return nil
	}
	return c.LoadDir(dir)
}
