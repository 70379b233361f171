// Package trace keeps the key-value state shared between setup phases,
// such as generated credentials of a deployment instance.
//
// Values are write-once: SetIfAbsent never overwrites an existing key, so
// a later phase cannot clobber what an earlier phase generated.
package trace

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

// Well known keys.
const (
	KeyCegaMQUser     = "CEGA_MQ_USER"
	KeyCegaMQPassword = "CEGA_MQ_PASSWORD"
	KeyDBUser         = "DB_USER"
	KeyDBPassword     = "DB_PASSWORD"
	KeyS3AccessKey    = "S3_ACCESS_KEY"
	KeyS3SecretKey    = "S3_SECRET_KEY"
)

type Store interface {
	Get(key string) (string, error)
	// SetIfAbsent stores value unless key exists and reports whether it wrote.
	SetIfAbsent(key, value string) (bool, error)
	All() (map[string]string, error)
}

// FileStore is a Store backed by a KEY=value file. "KEY = value" lines are
// accepted as well.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", srvErrors.NewTraceKeyNotFoundError(key)
	}
	return v, nil
}

func (s *FileStore) SetIfAbsent(key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return false, err
	}
	if _, ok := values[key]; ok {
		return false, nil
	}
	values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return false, err
	}
	if err := godotenv.Write(values, s.path); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (map[string]string, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return godotenv.Unmarshal(normalize(string(content)))
}

// normalize turns "KEY = value" lines into "KEY=value".
func normalize(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		lines[i] = strings.TrimSpace(key) + "=" + strings.TrimSpace(value)
	}
	return strings.Join(lines, "\n")
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	values map[string]string
	mu     sync.Mutex
}

func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", srvErrors.NewTraceKeyNotFoundError(key)
	}
	return v, nil
}

func (s *MemoryStore) SetIfAbsent(key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

func (s *MemoryStore) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// Resolve returns explicit when set and the trace value of key otherwise.
func Resolve(s Store, explicit, key string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return s.Get(key)
}

// WithURLCredentials adds the trace values of userKey and passwordKey as user
// info of raw when raw is a URL without one. Other values, such as
// key=value DSNs, are returned unchanged.
func WithURLCredentials(raw string, s Store, userKey, passwordKey string) (string, error) {
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.User != nil {
		return raw, nil
	}

	user, err := s.Get(userKey)
	if srvErrors.IsResourceNotFoundError(err) {
		return raw, nil
	}
	if err != nil {
		return "", err
	}
	password, err := s.Get(passwordKey)
	if err != nil && !srvErrors.IsResourceNotFoundError(err) {
		return "", err
	}

	u.User = url.UserPassword(user, password)
	return u.String(), nil
}
