// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     translator
// Description: YAML prompt book with hot-reload support
// Author:      Mike Stoffels
// Created:     2026-01-15
// License:     MIT
// ============================================================================

package translator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/msto63/englishquery/pkg/core/logging"
)

// DefaultPromptName is the prompt used when none is configured
const DefaultPromptName = "english_to_sql"

const defaultSystemPrompt = `You translate plain English questions into a single MariaDB SQL statement.
Return ONLY SQL. No markdown, no explanation.
Prefer explicit column lists over SELECT *.
If the question cannot be answered with SQL, return an empty reply.`

// Prompt is one named system prompt
type Prompt struct {
	Description string `yaml:"description"`
	System      string `yaml:"system"`
}

type promptFile struct {
	Prompts map[string]Prompt `yaml:"prompts"`
}

// PromptBook holds named prompts loaded from a YAML file. A prompt that
// is missing from the file falls back to the built-in default.
type PromptBook struct {
	mu      sync.RWMutex
	path    string
	prompts map[string]Prompt
	logger  *logging.Logger

	watcher  *fsnotify.Watcher
	onReload func()
	running  bool
}

// DefaultPromptBook returns a book holding only the built-in prompt
func DefaultPromptBook() *PromptBook {
	return &PromptBook{
		prompts: map[string]Prompt{
			DefaultPromptName: {Description: "English to MariaDB SQL", System: defaultSystemPrompt},
		},
		logger: logging.New("prompts"),
	}
}

// LoadPromptBook reads prompts from path. An empty path yields the
// default book; a missing file is an error.
func LoadPromptBook(path string) (*PromptBook, error) {
	b := DefaultPromptBook()
	if path == "" {
		return b, nil
	}
	b.path = path
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the prompt file
func (b *PromptBook) Reload() error {
	if b.path == "" {
		return nil
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("failed to read prompt file: %w", err)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("failed to parse prompt file %s: %w", b.path, err)
	}

	prompts := map[string]Prompt{
		DefaultPromptName: {Description: "English to MariaDB SQL", System: defaultSystemPrompt},
	}
	for name, p := range pf.Prompts {
		if p.System == "" {
			continue
		}
		prompts[name] = p
	}

	b.mu.Lock()
	b.prompts = prompts
	b.mu.Unlock()
	return nil
}

// Get returns a prompt by name
func (b *PromptBook) Get(name string) (Prompt, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prompts[name]
	return p, ok
}

// System returns the system text of name, or the default prompt
func (b *PromptBook) System(name string) string {
	if p, ok := b.Get(name); ok {
		return p.System
	}
	b.logger.Warn("Unknown prompt, using default", "name", name)
	p, _ := b.Get(DefaultPromptName)
	return p.System
}

// Names returns the loaded prompt names
func (b *PromptBook) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.prompts))
	for name := range b.prompts {
		names = append(names, name)
	}
	return names
}

// SetOnReload registers a callback run after each successful reload
func (b *PromptBook) SetOnReload(fn func()) {
	b.mu.Lock()
	b.onReload = fn
	b.mu.Unlock()
}

// StartWatching reloads the book whenever its file changes, until ctx is done
func (b *PromptBook) StartWatching(ctx context.Context) error {
	if b.path == "" || b.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Editors often replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	b.watcher = watcher
	b.running = true
	b.logger.Info("Watching prompt file", "file", b.path)

	go b.watchLoop(ctx)
	return nil
}

func (b *PromptBook) watchLoop(ctx context.Context) {
	defer b.watcher.Close()

	target := filepath.Clean(b.path)
	const debounceDelay = 200 * time.Millisecond

	// Writes arrive in bursts; reload once the file has been quiet
	// for debounceDelay.
	var timer *time.Timer
	var settled <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
			} else {
				timer.Reset(debounceDelay)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			if err := b.Reload(); err != nil {
				b.logger.Error("Failed to reload prompts", "error", err)
				continue
			}
			b.logger.Info("Prompts reloaded", "file", filepath.Base(b.path))

			b.mu.RLock()
			fn := b.onReload
			b.mu.RUnlock()
			if fn != nil {
				fn()
			}

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Error("Watcher error", "error", err)
		}
	}
}
