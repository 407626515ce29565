package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/qafax/qafax/errors"
)

// Loaded is a QA config document together with its derived metadata.
// The hash is computed over the raw bytes, not the parsed form, so two
// semantically equal files with different formatting hash differently.
// Reports reference the exact file an operator shipped.
type Loaded struct {
	Path    string
	Payload json.RawMessage
	SHA256  string
}

// HashPrefix returns a short hash for log-friendly usage.
func (l *Loaded) HashPrefix() string {
	if len(l.SHA256) < 8 {
		return l.SHA256
	}
	return l.SHA256[:8]
}

// Service loads JSON configuration documents with caching and hashing.
type Service struct {
	basePath string
	mu       sync.Mutex
	cache    map[string]*Loaded
}

// NewService creates a Service rooted at basePath.
func NewService(basePath string) *Service {
	return &Service{
		basePath: basePath,
		cache:    make(map[string]*Loaded),
	}
}

// BasePath exposes the configuration root for callers that enumerate files.
func (s *Service) BasePath() string {
	return s.basePath
}

// Load reads a configuration document relative to the base path.
func (s *Service) Load(relativePath string) (*Loaded, error) {
	resolved, err := filepath.Abs(filepath.Join(s.basePath, relativePath))
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}

	s.mu.Lock()
	cached, ok := s.cache[resolved]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("configuration file %s", resolved)
		}
		return nil, errors.Wrapf(err, "read configuration file %s", resolved)
	}

	if !json.Valid(raw) {
		return nil, errors.NewInvalidConfigError("%s is not valid JSON", resolved)
	}

	digest := sha256.Sum256(raw)
	loaded := &Loaded{
		Path:    resolved,
		Payload: json.RawMessage(raw),
		SHA256:  hex.EncodeToString(digest[:]),
	}

	s.mu.Lock()
	s.cache[resolved] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// LoadOptional is like Load but returns nil (no error) for a missing file.
func (s *Service) LoadOptional(relativePath string) (*Loaded, error) {
	loaded, err := s.Load(relativePath)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return loaded, nil
}

// LoadProfile reads profiles/<name>.json.
func (s *Service) LoadProfile(name string) (*Loaded, error) {
	return s.Load(filepath.Join("profiles", name+".json"))
}

// LoadPolicy reads verify_policy.<name>.json.
func (s *Service) LoadPolicy(name string) (*Loaded, error) {
	return s.Load("verify_policy." + name + ".json")
}

// ListProfiles returns the profile names available under profiles/.
func (s *Service) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, "profiles"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list profiles")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name()[:len(entry.Name())-len(".json")])
	}
	return names, nil
}
