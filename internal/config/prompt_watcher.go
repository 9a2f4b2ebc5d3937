package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cvforge/internal/errors"
)

// PromptWatcher watches prompt files and reloads them after edits settle.
type PromptWatcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reload func()
	logger *errors.Logger

	running bool
}

// NewPromptWatcher creates a watcher over files that calls reload once per
// burst of changes.
func NewPromptWatcher(files []string, debounceDelay time.Duration, reload func(), logger *errors.Logger) *PromptWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	abs := make([]string, 0, len(files))
	for _, f := range files {
		if p, err := filepath.Abs(f); err == nil {
			f = p
		}
		if !slices.Contains(abs, f) {
			abs = append(abs, f)
		}
	}
	return &PromptWatcher{
		files:         abs,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		reload:        reload,
		logger:        logger,
	}
}

// WatchPrompts starts a watcher that refreshes c.Prompts. It returns nil
// without error when watching is disabled or no prompt files are set.
func (c *Config) WatchPrompts(logger *errors.Logger) (*PromptWatcher, error) {
	files := c.PromptFiles()
	if !c.AI.PromptWatch.Enabled || len(files) == 0 {
		return nil, nil
	}
	w := NewPromptWatcher(files, c.AI.PromptWatch.DebounceDelay, func() {
		if err := c.ReloadPrompts(); err != nil {
			logger.LogError(err, "Prompt reload failed, keeping previous prompts")
			return
		}
		logger.Info("Prompt files reloaded", "files", len(files))
	}, logger)
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins watching the prompt files
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher
	pw.updateModTimes()

	for _, file := range pw.files {
		if err := pw.addFileToWatcher(file); err != nil && pw.logger != nil {
			pw.logger.Warn("Failed to watch prompt file", "file", file, "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher started",
			"files", pw.files,
			"debounce_delay", pw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. It is safe to call more than once and on nil.
func (pw *PromptWatcher) Stop() error {
	if pw == nil {
		return nil
	}
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		if pw.logger != nil {
			pw.logger.LogError(err, "Failed to close prompt file watcher")
		}
		return err
	}
	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher stopped")
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

// addFileToWatcher watches the file's directory so editors that replace the
// file by rename are still seen.
func (pw *PromptWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)
	if err := pw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (pw *PromptWatcher) updateModTimes() {
	for _, file := range pw.files {
		if stat, err := os.Stat(file); err == nil {
			pw.lastModTime[file] = stat.ModTime()
		}
	}
}

// hasFileChanged checks if a file has been modified since last check
func (pw *PromptWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, exists := pw.lastModTime[file]; exists && os.IsNotExist(err) {
			delete(pw.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, exists := pw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		pw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt file watcher error")
			}

		case <-pw.reloadChan:
			pw.mu.Lock()
			changed := slices.ContainsFunc(pw.files, pw.hasFileChanged)
			pw.mu.Unlock()
			if changed {
				pw.reload()
			}

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if !slices.Contains(pw.files, name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
