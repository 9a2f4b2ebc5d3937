package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompts holds the content of one operation's prompt files
type LoadedPrompts struct {
	System string
	User   string
}

// PromptStore holds prompt file content per operation. It is safe for
// concurrent use; the prompt watcher replaces entries while requests read.
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[string]LoadedPrompts
}

func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[string]LoadedPrompts)}
}

// Get returns a copy of the prompts loaded for an operation. A nil store
// has nothing loaded.
func (s *PromptStore) Get(operation string) LoadedPrompts {
	if s == nil {
		return LoadedPrompts{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[operation]
}

func (s *PromptStore) set(operation string, p LoadedPrompts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[operation] = p
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	if c.Prompts == nil {
		c.Prompts = NewPromptStore()
	}

	loaded := 0
	for _, op := range Operations {
		prompts, err := c.readOperationPrompts(op)
		if err != nil {
			return fmt.Errorf("failed to load %s prompts: %w", op, err)
		}
		if prompts.System != "" {
			loaded++
		}
		if prompts.User != "" {
			loaded++
		}
		c.Prompts.set(op, prompts)
	}

	log.Printf("[CONFIG] Custom prompt files loaded: %d", loaded)
	return nil
}

// ReloadPrompts re-reads every configured prompt file. On error the store
// keeps its previous content.
func (c *Config) ReloadPrompts() error {
	fresh := make(map[string]LoadedPrompts, len(Operations))
	for _, op := range Operations {
		prompts, err := c.readOperationPrompts(op)
		if err != nil {
			return fmt.Errorf("failed to reload %s prompts: %w", op, err)
		}
		fresh[op] = prompts
	}
	if c.Prompts == nil {
		c.Prompts = NewPromptStore()
	}
	for op, prompts := range fresh {
		c.Prompts.set(op, prompts)
	}
	return nil
}

// PromptFiles lists every configured prompt file path.
func (c *Config) PromptFiles() []string {
	var files []string
	for _, op := range Operations {
		p := c.operationRef(op).Prompts
		if p.SystemFile != "" {
			files = append(files, p.SystemFile)
		}
		if p.UserFile != "" {
			files = append(files, p.UserFile)
		}
	}
	return files
}

func (c *Config) readOperationPrompts(op string) (LoadedPrompts, error) {
	var out LoadedPrompts
	p := c.operationRef(op).Prompts
	if p.SystemFile != "" {
		content, err := loadPromptFromFile(p.SystemFile, "system", op)
		if err != nil {
			return out, err
		}
		out.System = content
	}
	if p.UserFile != "" {
		content, err := loadPromptFromFile(p.UserFile, "user", op)
		if err != nil {
			return out, err
		}
		out.User = content
	}
	return out, nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType, operation string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", promptType, operation, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", promptType, operation, absPath))
		}
	}

	for _, op := range Operations {
		p := c.operationRef(op).Prompts
		validateFile(p.SystemFile, "system", op)
		validateFile(p.UserFile, "user", op)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}
