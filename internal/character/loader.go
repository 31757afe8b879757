// Package character implements a minimal YAML-backed CharacterLoader for
// local testing, with fsnotify-driven hot reload. Real character authoring
// and custom-character creation are out of scope (SPEC_FULL.md section 1);
// this loader exists only so the orchestrator has a concrete, swappable
// CharacterLoader to depend on.
package character

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"charactermemory/internal/models"
)

// Loader resolves character IDs to descriptors, per models.CharacterDescriptor.
type Loader interface {
	Get(characterID string) (*models.CharacterDescriptor, error)
}

type characterFile struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Persona         map[string]string `yaml:"persona"`
	LearningEnabled bool              `yaml:"learning_enabled"`
}

// YAMLLoader loads character definitions from *.yaml files in a directory,
// watching the directory for changes via fsnotify and reloading in place.
type YAMLLoader struct {
	dir         string
	memoriesDir string
	logger      *slog.Logger

	mu         sync.RWMutex
	characters map[string]*models.CharacterDescriptor

	watcher *fsnotify.Watcher
}

// NewYAMLLoader reads every *.yaml file under dir and starts watching it
// for hot-reload. memoriesDir is used to populate each descriptor's
// MemoryDBPath.
func NewYAMLLoader(dir, memoriesDir string, logger *slog.Logger) (*YAMLLoader, error) {
	l := &YAMLLoader{
		dir:         dir,
		memoriesDir: memoriesDir,
		logger:      logger,
		characters:  make(map[string]*models.CharacterDescriptor),
	}

	if err := l.reloadAll(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("character loader: start watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("character loader: watch dir: %w", err)
	}
	l.watcher = watcher

	go l.watchLoop()

	return l, nil
}

func (l *YAMLLoader) reloadAll() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("character loader: read dir: %w", err)
	}

	loaded := make(map[string]*models.CharacterDescriptor)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		desc, err := l.loadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			if l.logger != nil {
				l.logger.Warn("character loader: skipping invalid file", "file", entry.Name(), "error", err)
			}
			continue
		}
		loaded[desc.ID] = desc
	}

	l.mu.Lock()
	l.characters = loaded
	l.mu.Unlock()
	return nil
}

func (l *YAMLLoader) loadFile(path string) (*models.CharacterDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf characterFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, err
	}
	if cf.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	return &models.CharacterDescriptor{
		ID:              cf.ID,
		Name:            cf.Name,
		PersonaFields:   cf.Persona,
		MemoryDBPath:    filepath.Join(l.memoriesDir, cf.ID),
		LearningEnabled: cf.LearningEnabled,
	}, nil
}

func (l *YAMLLoader) watchLoop() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if err := l.reloadAll(); err != nil && l.logger != nil {
					l.logger.Warn("character loader: reload failed", "error", err)
				}
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			if l.logger != nil {
				l.logger.Warn("character loader: watcher error", "error", err)
			}
		}
	}
}

// Get returns the descriptor for characterID.
func (l *YAMLLoader) Get(characterID string) (*models.CharacterDescriptor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	desc, ok := l.characters[characterID]
	if !ok {
		return nil, fmt.Errorf("character %q not found", characterID)
	}
	return desc, nil
}

// Close stops the filesystem watcher.
func (l *YAMLLoader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}
