package testing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mec/internal/blob"
	"mec/internal/config"
	"mec/internal/factory"
	"mec/internal/suite"
)

// suiteLoader implements the SuiteLoader interface
type suiteLoader struct {
	registry *factory.Registry
	logger   TestLogger
}

// NewSuiteLoader creates a loader that decodes suites through registry.
func NewSuiteLoader(registry *factory.Registry, logger TestLogger) SuiteLoader {
	if logger == nil {
		logger = NewSilentLogger(false, false)
	}
	return &suiteLoader{registry: registry, logger: logger}
}

// IsSuiteFile reports whether path has a suite file extension.
func IsSuiteFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadSuites loads every suite file named by paths. Directories are walked
// recursively. Every broken file is reported in one config.ErrorCollection.
func (l *suiteLoader) LoadSuites(paths ...string) ([]LoadedSuite, error) {
	var files []string
	var errs config.ErrorCollection

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs.Add(config.NewFileError(p, config.ErrorTypeIO, err))
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := l.walk(p)
		if err != nil {
			errs.Add(config.NewFileError(p, config.ErrorTypeIO, err))
			continue
		}
		files = append(files, found...)
	}

	l.logger.Debug("📁 Loading %d suite files\n", len(files))

	var suites []LoadedSuite
	for _, f := range files {
		s, ferr := l.LoadFile(f)
		if ferr != nil {
			errs.Add(*ferr)
			continue
		}
		l.logger.Debug("  • %s (%d cases) from %s\n", s.Name(), s.Len(), f)
		suites = append(suites, LoadedSuite{Suite: s, File: f})
	}

	return suites, errs.Err()
}

func (l *suiteLoader) walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSuiteFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile decodes one suite file. A file holding a single test case is
// wrapped in a suite.
func (l *suiteLoader) LoadFile(path string) (*suite.TestSuite, *config.FileError) {
	data, err := os.ReadFile(path)
	if err != nil {
		ferr := config.NewFileError(path, config.ErrorTypeIO, err)
		return nil, &ferr
	}
	b, err := Parse(path, data)
	if err != nil {
		ferr := config.NewFileError(path, config.ErrorTypeParse, err)
		return nil, &ferr
	}
	s, err := suite.Decode(l.registry, b)
	if err != nil {
		ferr := config.NewFileError(path, config.ErrorTypeConstruct, err)
		return nil, &ferr
	}
	return s, nil
}

// Parse turns file contents into a structured blob. YAML is converted to
// JSON; JSON is used as is.
func Parse(path string, data []byte) (*blob.Blob, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return blob.New(blob.TypeStructured, data), nil
	}
	return blob.FromYAML(data)
}

// FilterSuites keeps suites whose name contains config.Suite.
func (l *suiteLoader) FilterSuites(suites []LoadedSuite, cfg TestConfiguration) []LoadedSuite {
	if cfg.Suite == "" {
		return suites
	}
	var filtered []LoadedSuite
	for _, s := range suites {
		if strings.Contains(s.Name(), cfg.Suite) {
			filtered = append(filtered, s)
		}
	}
	l.logger.Debug("📊 Filtered to %d suites\n", len(filtered))
	return filtered
}
