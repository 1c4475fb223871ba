// Package registry resolves model identifiers to locally installed weight
// and vocabulary files.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	// ModelFile is the ONNX weights file expected in a model directory.
	ModelFile = "model.onnx"
	// TokenizerFile is the tokenizer vocabulary expected in a model directory.
	TokenizerFile = "tokenizer.json"
	// ManifestFile is the optional digest manifest for verification.
	ManifestFile = "manifest.yml"

	// cacheSubdir is the registry location under the user cache directory.
	cacheSubdir = "qembed/models"
)

// Errors returned by registry lookups.
var (
	ErrModelNotFound   = errors.New("model not found")
	ErrModelIncomplete = errors.New("model directory incomplete")
	ErrNoManifest      = errors.New("model has no manifest")
)

// Model describes a resolved local model.
type Model struct {
	Name          string // Identifier, e.g. "allenai/scibert_scivocab_uncased"
	Dir           string // Model directory
	ModelPath     string // Absolute path to model.onnx
	TokenizerPath string // Absolute path to tokenizer.json
}

// Registry looks up models under a single root directory. Identifiers map
// directly to subdirectories, so "allenai/scibert_scivocab_uncased" lives at
// <root>/allenai/scibert_scivocab_uncased/.
type Registry struct {
	root string
}

// New creates a registry rooted at the given directory.
func New(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the registry's root directory.
func (r *Registry) Root() string {
	return r.root
}

// DefaultRoot returns the default models directory. Respects
// XDG_CACHE_HOME, defaults to ~/.cache/qembed/models.
func DefaultRoot() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cacheSubdir
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, cacheSubdir)
}

// Resolve maps a model identifier to its local files. Returns
// ErrModelNotFound if the directory doesn't exist and ErrModelIncomplete if
// it exists but is missing the weights or the vocabulary.
func (r *Registry) Resolve(name string) (*Model, error) {
	dir := filepath.Join(r.root, filepath.FromSlash(name))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q under %s", ErrModelNotFound, name, r.root)
	}

	m := &Model{
		Name:          name,
		Dir:           dir,
		ModelPath:     filepath.Join(dir, ModelFile),
		TokenizerPath: filepath.Join(dir, TokenizerFile),
	}

	if _, err := os.Stat(m.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %q is missing %s", ErrModelIncomplete, name, ModelFile)
	}
	if _, err := os.Stat(m.TokenizerPath); err != nil {
		return nil, fmt.Errorf("%w: %q is missing %s", ErrModelIncomplete, name, TokenizerFile)
	}

	return m, nil
}

// List enumerates installed models, sorted by name. A directory counts as a
// model when it contains the weights file.
func (r *Registry) List() ([]Model, error) {
	var models []Model

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, ModelFile)); statErr != nil {
			return nil
		}

		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			return relErr
		}
		models = append(models, Model{
			Name:          filepath.ToSlash(rel),
			Dir:           path,
			ModelPath:     filepath.Join(path, ModelFile),
			TokenizerPath: filepath.Join(path, TokenizerFile),
		})
		return fs.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("scanning models directory: %w", err)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}
