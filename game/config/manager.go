package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// DefaultLevelID is loaded as the default level when present
const DefaultLevelID = "tower"

// levelExtensions are tried in order when resolving a level id
var levelExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	defaultID    string
	defaultLevel *engine.Level
	levels       map[string]*engine.Level
	mu           sync.RWMutex
}

// NewManager creates a level manager over levelDir
func NewManager(levelDir string) (*Manager, error) {
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.Level),
	}
	m.pickDefault(DefaultLevelID)
	return m, nil
}

// LoadLevel loads a level by id. The id may carry its file extension. The
// builtin id resolves to BuiltinLevel unless a file of that name exists.
func (m *Manager) LoadLevel(id string) (*engine.Level, error) {
	id = levelID(id)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrLevelNotFound
	}

	m.mu.RLock()
	if level, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[id]; exists {
		return level, nil
	}

	path, err := m.resolve(id)
	if errors.Is(err, ErrLevelNotFound) && id == BuiltinLevelID {
		level := BuiltinLevel()
		m.levels[id] = level
		return level, nil
	}
	if err != nil {
		return nil, err
	}
	level, err := ReadLevelFile(path)
	if err != nil {
		return nil, err
	}

	m.levels[id] = level
	return level, nil
}

// ListLevels returns information about every valid level in the directory.
// Files that fail to load are skipped.
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	seen := make(map[string]bool)
	var levels []*service.LevelInfo

	for _, entry := range entries {
		if entry.IsDir() || !hasLevelExtension(entry.Name()) {
			continue
		}
		id := levelID(entry.Name())
		if seen[id] {
			continue
		}

		level, err := m.LoadLevel(id)
		if err != nil {
			continue
		}
		seen[id] = true

		info := &service.LevelInfo{
			Filename:    entry.Name(),
			LevelID:     id,
			Name:        level.Name,
			Description: level.Description,
			TimeLimit:   level.TimeLimit,
		}
		if grid, err := level.Build(); err == nil {
			info.Width, info.Height = grid.Width(), grid.Height()
		}
		if info.TimeLimit <= 0 {
			info.TimeLimit = engine.DefaultTimeLimit
		}
		levels = append(levels, info)
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

// GetDefault returns the default level and its id
func (m *Manager) GetDefault() (string, *engine.Level) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID, m.defaultLevel
}

// SetDefault sets the default level by id
func (m *Manager) SetDefault(id string) error {
	level, err := m.LoadLevel(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = levelID(id)
	m.defaultLevel = level
	return nil
}

// RefreshCache drops every cached level and picks the default again
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	preferred := m.defaultID
	m.levels = make(map[string]*engine.Level)
	m.mu.Unlock()

	m.pickDefault(preferred)
}

// pickDefault loads preferred, falling back to the first listed level and
// finally to the built-in level
func (m *Manager) pickDefault(preferred string) {
	id := preferred
	level, err := m.LoadLevel(preferred)
	if err != nil {
		id, level = BuiltinLevelID, BuiltinLevel()
		if infos, listErr := m.ListLevels(); listErr == nil && len(infos) > 0 {
			if first, err := m.LoadLevel(infos[0].LevelID); err == nil {
				id, level = infos[0].LevelID, first
			}
		}
	}

	m.mu.Lock()
	m.defaultID = id
	m.defaultLevel = level
	m.mu.Unlock()
}

// resolve finds the file backing a level id
func (m *Manager) resolve(id string) (string, error) {
	for _, ext := range levelExtensions {
		path := filepath.Join(m.levelDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrLevelNotFound
}

// ReadLevelFile reads, decodes and validates a single level file. The format
// follows the file extension.
func ReadLevelFile(path string) (*engine.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLevelNotFound
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	level, err := DecodeLevel(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidateLevel(level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	return level, nil
}

// DecodeLevel parses level data in the format named by ext (".json",
// ".yaml" or ".yml"). It does not validate the level.
func DecodeLevel(ext string, data []byte) (*engine.Level, error) {
	var level engine.Level
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &level); err != nil {
			return nil, fmt.Errorf("failed to parse level: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &level); err != nil {
			return nil, fmt.Errorf("failed to parse level: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported level format %q", ext)
	}
	return &level, nil
}

func hasLevelExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range levelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// levelID strips a known level extension
func levelID(name string) string {
	if hasLevelExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
