package character

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCharacterFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		t.Fatalf("write character file: %v", err)
	}
}

func TestLoaderLoadsExistingCharacters(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "nova.yaml", "id: nova\nname: Nova\npersona:\n  tone: warm\n")

	loader, err := NewYAMLLoader(dir, filepath.Join(dir, "memories"), nil)
	if err != nil {
		t.Fatalf("NewYAMLLoader: %v", err)
	}
	defer loader.Close()

	desc, err := loader.Get("nova")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if desc.Name != "Nova" || desc.PersonaFields["tone"] != "warm" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestLoaderHotReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "nova.yaml", "id: nova\nname: Nova\n")

	loader, err := NewYAMLLoader(dir, filepath.Join(dir, "memories"), nil)
	if err != nil {
		t.Fatalf("NewYAMLLoader: %v", err)
	}
	defer loader.Close()

	writeCharacterFile(t, dir, "echo.yaml", "id: echo\nname: Echo\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := loader.Get("echo"); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected echo character to appear after hot reload")
}

func TestLoaderUnknownCharacterErrors(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "nova.yaml", "id: nova\nname: Nova\n")

	loader, err := NewYAMLLoader(dir, filepath.Join(dir, "memories"), nil)
	if err != nil {
		t.Fatalf("NewYAMLLoader: %v", err)
	}
	defer loader.Close()

	if _, err := loader.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown character")
	}
}
