package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"cvforge/internal/errors"
)

func writePrompt(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write prompt file %s: %v", path, err)
	}
}

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "You refine resume text."
	userPromptContent := "%s\n\n--- TEXT ---\n%s"

	systemPromptFile := filepath.Join(tempDir, "system.refine.md")
	userPromptFile := filepath.Join(tempDir, "user.refine.md")
	writePrompt(t, systemPromptFile, systemPromptContent)
	writePrompt(t, userPromptFile, userPromptContent+"\n\n")

	config := &Config{
		AI: AIConfig{
			Refine: OperationAIConfig{
				Prompts: PromptConfig{
					SystemFile: systemPromptFile,
					UserFile:   userPromptFile,
				},
			},
		},
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	loaded := config.Prompts.Get(OpRefine)
	if loaded.System != systemPromptContent {
		t.Errorf("Expected loaded system prompt '%s', got '%s'", systemPromptContent, loaded.System)
	}
	if loaded.User != userPromptContent {
		t.Errorf("Expected trimmed user prompt '%s', got '%s'", userPromptContent, loaded.User)
	}

	if other := config.Prompts.Get(OpParse); other != (LoadedPrompts{}) {
		t.Errorf("Expected no prompts for parse, got %+v", other)
	}
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()
	validFile := filepath.Join(tempDir, "valid.md")
	writePrompt(t, validFile, "Valid content")

	config := &Config{}
	config.AI.Skills.Prompts.SystemFile = validFile

	if err := config.validatePromptFiles(); err != nil {
		t.Errorf("Expected validation to pass for valid file, got error: %v", err)
	}

	config.AI.Skills.Prompts.UserFile = filepath.Join(tempDir, "nonexistent.md")
	if err := config.validatePromptFiles(); err == nil {
		t.Error("Expected validation to fail for non-existent file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content := "Test prompt content"
	testFile := filepath.Join(tempDir, "test.md")
	writePrompt(t, testFile, content)

	loadedContent, err := loadPromptFromFile(testFile, "system", OpParse)
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}
	if loadedContent != content {
		t.Errorf("Expected content '%s', got '%s'", content, loadedContent)
	}

	emptyFile := filepath.Join(tempDir, "empty.md")
	writePrompt(t, emptyFile, "  \n")
	if _, err := loadPromptFromFile(emptyFile, "system", OpParse); err == nil {
		t.Error("Expected error for empty file")
	}

	if _, err := loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), "system", OpParse); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestReloadPromptsKeepsPreviousOnError(t *testing.T) {
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "skills.md")
	writePrompt(t, file, "first")

	config := &Config{}
	config.AI.Skills.Prompts.UserFile = file
	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts: %v", err)
	}

	writePrompt(t, file, "second")
	if err := config.ReloadPrompts(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := config.Prompts.Get(OpSkills).User; got != "second" {
		t.Errorf("Expected reloaded prompt 'second', got '%s'", got)
	}

	writePrompt(t, file, "")
	if err := config.ReloadPrompts(); err == nil {
		t.Error("Expected reload of an empty file to fail")
	}
	if got := config.Prompts.Get(OpSkills).User; got != "second" {
		t.Errorf("Expected previous prompt to survive a failed reload, got '%s'", got)
	}
}

func TestPromptWatcherReloadsOnWrite(t *testing.T) {
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "parse.md")
	writePrompt(t, file, "v1")

	var reloads atomic.Int32
	w := NewPromptWatcher([]string{file}, 20*time.Millisecond, func() { reloads.Add(1) }, errors.Discard())
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if !w.IsRunning() {
		t.Fatal("Expected watcher to be running")
	}
	if err := w.Start(); err == nil {
		t.Error("Expected second Start to fail")
	}

	// Make sure the modification time moves even on coarse filesystems.
	time.Sleep(20 * time.Millisecond)
	writePrompt(t, file, "v2")
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatalf("Failed to touch file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if reloads.Load() == 0 {
		t.Fatal("Expected a reload after the prompt file changed")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("Expected watcher to be stopped")
	}
}

func TestWatchPromptsDisabled(t *testing.T) {
	config := &Config{}
	config.AI.Parse.Prompts.UserFile = "/tmp/whatever.md"

	w, err := config.WatchPrompts(errors.Discard())
	if err != nil || w != nil {
		t.Errorf("Expected no watcher when disabled, got %v, %v", w, err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop on nil watcher should be a no-op: %v", err)
	}
}
