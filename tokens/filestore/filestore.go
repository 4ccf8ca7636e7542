// Package filestore keeps tokens in a YAML file readable only by the current user.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-directory-session/tokens"
	"gopkg.in/yaml.v3"
)

var (
	_ tokens.Backend = (*Store)(nil)
	_ tokens.Batcher = (*Store)(nil)
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

type document struct {
	Tokens map[string]string `yaml:"tokens"`
}

// Store reads the file on every Get so that several processes sharing the
// file observe each other's writes.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("filestore: create directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Tokens[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetAll(ctx, map[string]string{key: value})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.RemoveAll(ctx, key)
}

func (s *Store) SetAll(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		doc.Tokens[k] = v
	}
	return s.write(doc)
}

func (s *Store) RemoveAll(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc.Tokens[k]; ok {
			delete(doc.Tokens, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(doc)
}

func (s *Store) read() (*document, error) {
	doc := &document{Tokens: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", s.path, err)
	}
	if doc.Tokens == nil {
		doc.Tokens = map[string]string{}
	}
	return doc, nil
}

// write replaces the file through a rename so readers never see a partial document.
func (s *Store) write(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("filestore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}
