package cart

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/himalfrost/store-api/internal/domain"
)

// Storage persists cart lines between sessions.
type Storage interface {
	Load() ([]domain.OrderItem, error)
	Save(lines []domain.OrderItem) error
}

// FileStorage keeps the cart as a JSON document at Path.
type FileStorage struct {
	Path string
}

type document struct {
	Items []domain.OrderItem `json:"items"`
}

// Load returns no lines when the file does not exist yet.
func (f FileStorage) Load() ([]domain.OrderItem, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// Save writes to a temp file in the same directory and renames it over Path.
func (f FileStorage) Save(lines []domain.OrderItem) error {
	if lines == nil {
		lines = []domain.OrderItem{}
	}
	b, err := json.MarshalIndent(document{Items: lines}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
