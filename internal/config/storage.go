package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mec/pkg/logging"
)

// ErrNotFound is returned when a stored document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage keeps YAML documents under <config dir>/<kind>/<name>.yaml.
type Storage struct {
	mu         sync.RWMutex
	configPath string // when empty, ~/.config/mec is used
}

// NewStorage creates a Storage using the default configuration directory.
func NewStorage() *Storage {
	return &Storage{}
}

// NewStorageWithPath creates a Storage rooted at configPath.
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{configPath: configPath}
}

// Save writes data as kind/name.
func (ds *Storage) Save(kind, name string, data []byte) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	dir, err := ds.kindDir(kind)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	filePath := filepath.Join(dir, sanitizeFilename(name)+".yaml")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Info("Storage", "Saved %s/%s to %s", kind, name, filePath)
	return nil
}

// Load reads kind/name. Both .yaml and .yml files are found.
func (ds *Storage) Load(kind, name string) ([]byte, error) {
	if err := checkKey(kind, name); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	filePath, err := ds.find(kind, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	logging.Debug("Storage", "Loaded %s/%s from %s", kind, name, filePath)
	return data, nil
}

// Path returns the file holding kind/name.
func (ds *Storage) Path(kind, name string) (string, error) {
	if err := checkKey(kind, name); err != nil {
		return "", err
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.find(kind, name)
}

// Delete removes kind/name.
func (ds *Storage) Delete(kind, name string) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	filePath, err := ds.find(kind, name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	logging.Info("Storage", "Deleted %s/%s from %s", kind, name, filePath)
	return nil
}

// List returns the sorted document names of kind.
func (ds *Storage) List(kind string) ([]string, error) {
	if kind == "" {
		return nil, fmt.Errorf("kind cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	dir, err := ds.kindDir(kind)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		files, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		for _, f := range files {
			base := filepath.Base(f)
			names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (ds *Storage) kindDir(kind string) (string, error) {
	configDir := ds.configPath
	if configDir == "" {
		var err error
		if configDir, err = GetUserConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(configDir, kind), nil
}

func (ds *Storage) find(kind, name string) (string, error) {
	dir, err := ds.kindDir(kind)
	if err != nil {
		return "", err
	}
	base := sanitizeFilename(name)
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
}

func checkKey(kind, name string) error {
	if kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_", " ", "_",
)

// sanitizeFilename maps name to a safe file base name.
func sanitizeFilename(name string) string {
	sanitized := unsafeChars.Replace(strings.TrimSpace(name))
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
