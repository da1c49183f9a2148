// Package taskstore persists the ordered task list as a single JSON document.
package taskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kaikteck/Mult-Function/pkg/models"
)

// FileStore reads and writes the task document at path
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored tasks. A missing file is an empty list, not an error.
func (s *FileStore) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	var doc models.TaskList
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	if doc.Tasks == nil {
		doc.Tasks = []string{}
	}
	return doc.Tasks, nil
}

// Save overwrites the document with tasks
func (s *FileStore) Save(tasks []string) error {
	if tasks == nil {
		tasks = []string{}
	}
	data, err := json.Marshal(models.TaskList{Tasks: tasks})
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace tasks: %w", err)
	}
	return nil
}
