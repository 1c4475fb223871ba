package registry

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Manifest lists expected digests for a model's files. Digests are
// BLAKE2b-256 in hex; BLAKE2b keeps verification cheap even for
// multi-gigabyte weight files.
type Manifest struct {
	Files map[string]string `yaml:"files"` // file name -> hex digest
}

// LoadManifest reads the manifest from a model directory. Returns
// ErrNoManifest if the model ships without one.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("manifest lists no files")
	}
	return &m, nil
}

// WriteManifest computes digests for the given files in a model directory
// and writes the manifest alongside them.
func WriteManifest(dir string, files ...string) error {
	m := Manifest{Files: make(map[string]string, len(files))}
	for _, name := range files {
		digest, err := hashFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("hashing %s: %w", name, err)
		}
		m.Files[name] = digest
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Verify checks every file listed in the model's manifest against its
// recorded digest.
func (m *Model) Verify() error {
	manifest, err := LoadManifest(m.Dir)
	if err != nil {
		return err
	}

	for name, want := range manifest.Files {
		got, err := hashFile(filepath.Join(m.Dir, name))
		if err != nil {
			return fmt.Errorf("hashing %s: %w", name, err)
		}
		if got != want {
			return fmt.Errorf("digest mismatch for %s: got %s, want %s", name, got, want)
		}
	}
	return nil
}

// hashFile computes the BLAKE2b-256 digest of a file as a hex string.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
