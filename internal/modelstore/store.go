// Package modelstore persists trained models as digest-addressed JSON blobs
// on the local filesystem.
//
// Each saved model is written under <root>/models/<algorithm>/<hex> where the
// path is derived from the SHA-256 digest of the serialized payload. Loading
// verifies nothing beyond JSON validity; the digest in the path is the
// integrity key. Serialization round-trips float64 weights exactly, so a
// reloaded model scores identically to the one that was saved.
package modelstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

// Store is a filesystem-backed model store rooted at a scratch directory.
type Store struct {
	root string
}

// New creates the store directory tree under root.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "models"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model store: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the scratch directory the store writes under.
func (s *Store) Root() string { return s.root }

// Save serializes the model, writes it under its content digest, and records
// the digest on the model. Saving the same model twice yields the same digest
// and overwrites the same blob.
func (s *Store) Save(model *entities.Model) (digest.Digest, error) {
	if model.IsNull() {
		return "", fmt.Errorf("refusing to save the null model")
	}

	// Digest is computed over the payload without the digest field itself
	model.Digest = ""
	data, err := json.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("failed to serialize model: %w", err)
	}

	dgst := digest.FromBytes(data)
	path := s.blobPath(dgst)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write model blob: %w", err)
	}

	model.Digest = dgst
	return dgst, nil
}

// Load reads the model stored under the given digest.
func (s *Store) Load(dgst digest.Digest) (*entities.Model, error) {
	if err := dgst.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model digest %q: %w", dgst, err)
	}

	data, err := os.ReadFile(s.blobPath(dgst))
	if err != nil {
		return nil, fmt.Errorf("model blob %s: %w", dgst, err)
	}

	model := &entities.Model{}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("failed to decode model blob %s: %w", dgst, err)
	}
	model.Digest = dgst
	return model, nil
}

// Delete removes the entire store, including the scratch root.
func (s *Store) Delete() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to delete model store: %w", err)
	}
	return nil
}

func (s *Store) blobPath(dgst digest.Digest) string {
	return filepath.Join(s.root, "models", dgst.Algorithm().String(), dgst.Encoded())
}
