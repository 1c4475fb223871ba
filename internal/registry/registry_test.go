package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// installModel creates a minimal model directory under root.
func installModel(t *testing.T, root, name string, withTokenizer bool) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ModelFile), []byte("onnx-weights"), 0644); err != nil {
		t.Fatal(err)
	}
	if withTokenizer {
		if err := os.WriteFile(filepath.Join(dir, TokenizerFile), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	installModel(t, root, "allenai/scibert_scivocab_uncased", true)

	r := New(root)
	m, err := r.Resolve("allenai/scibert_scivocab_uncased")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if m.Name != "allenai/scibert_scivocab_uncased" {
		t.Errorf("Name = %q", m.Name)
	}
	if _, err := os.Stat(m.ModelPath); err != nil {
		t.Errorf("ModelPath %s not readable: %v", m.ModelPath, err)
	}
	if _, err := os.Stat(m.TokenizerPath); err != nil {
		t.Errorf("TokenizerPath %s not readable: %v", m.TokenizerPath, err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Resolve("no/such-model")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Resolve() error = %v, want ErrModelNotFound", err)
	}
}

func TestResolve_Incomplete(t *testing.T) {
	root := t.TempDir()
	installModel(t, root, "org/partial", false)

	r := New(root)
	_, err := r.Resolve("org/partial")
	if !errors.Is(err, ErrModelIncomplete) {
		t.Errorf("Resolve() error = %v, want ErrModelIncomplete", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	installModel(t, root, "allenai/scibert_scivocab_uncased", true)
	installModel(t, root, "sentence-transformers/all-minilm-l6-v2", true)

	r := New(root)
	models, err := r.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("List() returned %d models, want 2", len(models))
	}
	if models[0].Name != "allenai/scibert_scivocab_uncased" {
		t.Errorf("models[0].Name = %q, want sorted order", models[0].Name)
	}
	if models[1].Name != "sentence-transformers/all-minilm-l6-v2" {
		t.Errorf("models[1].Name = %q", models[1].Name)
	}
}

func TestList_MissingRoot(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "does-not-exist"))
	models, err := r.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("List() returned %d models, want 0", len(models))
	}
}

func TestVerify(t *testing.T) {
	root := t.TempDir()
	dir := installModel(t, root, "org/model", true)
	if err := WriteManifest(dir, ModelFile, TokenizerFile); err != nil {
		t.Fatalf("WriteManifest() error: %v", err)
	}

	r := New(root)
	m, err := r.Resolve("org/model")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if err := m.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}

	// Corrupt the weights and verification must fail.
	if err := os.WriteFile(m.ModelPath, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(); err == nil {
		t.Error("Verify() error = nil after tampering, want digest mismatch")
	}
}

func TestVerify_NoManifest(t *testing.T) {
	root := t.TempDir()
	installModel(t, root, "org/model", true)

	r := New(root)
	m, err := r.Resolve("org/model")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if err := m.Verify(); !errors.Is(err, ErrNoManifest) {
		t.Errorf("Verify() error = %v, want ErrNoManifest", err)
	}
}
