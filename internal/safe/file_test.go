package safe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestReadFile(t *testing.T) {
	t.Run("reads regular file", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")
		content := []byte("test content")

		if err := os.WriteFile(src, content, 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(src, nil)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}

		if string(got) != string(content) {
			t.Errorf("got %q, want %q", got, content)
		}
	})

	t.Run("rejects symlink by default", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")
		link := filepath.Join(tmpDir, "link.txt")

		if err := os.WriteFile(src, []byte("test"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := os.Symlink(src, link); err != nil {
			t.Fatal(err)
		}

		_, err := ReadFile(link, nil)
		if err == nil {
			t.Fatal("expected error for symlink, got nil")
		}
	})

	t.Run("allows symlink when enabled", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")
		link := filepath.Join(tmpDir, "link.txt")

		if err := os.WriteFile(src, []byte("test"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := os.Symlink(src, link); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(link, &ReadFileOptions{AllowSymlinks: true})
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(got) != "test" {
			t.Errorf("got %q, want %q", got, "test")
		}
	})

	t.Run("rejects directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir(), nil)
		if err == nil {
			t.Fatal("expected error for directory, got nil")
		}
	})

	t.Run("rejects file exceeding max size", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")

		content := make([]byte, 1024)
		if err := os.WriteFile(src, content, 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := ReadFile(src, &ReadFileOptions{MaxSize: 512})
		if err == nil {
			t.Fatal("expected error for oversized file, got nil")
		}
	})
}

func TestWriteFileAtomic(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("creates file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		if err := WriteFileAtomic(path, []byte("a,b\n"), 0o644, logger); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "a,b\n" {
			t.Errorf("got %q, want %q", got, "a,b\n")
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("permissions = %o, want 644", info.Mode().Perm())
		}
	})

	t.Run("replaces file and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.csv")

		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := WriteFileAtomic(path, []byte("new"), 0o600, logger); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "new" {
			t.Errorf("got %q, want %q", got, "new")
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("directory has %d entries, want 1", len(entries))
		}
	})

	t.Run("fails for missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.csv")
		if err := WriteFileAtomic(path, []byte("x"), 0o644, logger); err == nil {
			t.Fatal("expected error for missing directory, got nil")
		}
	})
}
