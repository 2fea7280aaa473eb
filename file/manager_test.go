package file

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewManager(t *testing.T) {
	t.Run("Keeps existing files", func(t *testing.T) {
		dir := t.TempDir()

		// Table files may start with any identifier, "temp" included.
		names := []string{"temperature.dat", "temp.dat", "users.dat"}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(dir, name), make([]byte, PageSize), 0o644); err != nil {
				t.Fatalf("Failed to create file for test: %v", err)
			}
		}

		manager, err := NewManager(dir, false)
		if err != nil {
			t.Fatalf("NewManager() failed: %v", err)
		}
		defer manager.Close()

		for _, name := range names {
			size, err := manager.Size(name)
			if err != nil {
				t.Fatalf("Size(%q) failed: %v", name, err)
			}
			if size != 1 {
				t.Errorf("Size(%q) = %d after NewManager(), want 1", name, size)
			}
		}
	})

	t.Run("Creates nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		if _, err := NewManager(dir, true); err != nil {
			t.Fatalf("NewManager() failed: %v", err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %q was not created", dir)
		}
	})

	t.Run("Fails on invalid directory path", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "testfile")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tmpfile.Name())
		tmpfile.Close()

		if _, err := NewManager(tmpfile.Name(), false); err == nil {
			t.Errorf("NewManager() should have failed for path %q but it did not", tmpfile.Name())
		}
	})
}

func TestManager_ReadWrite(t *testing.T) {
	manager, err := NewManager(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create file manager: %v", err)
	}
	defer manager.Close()

	// Page 2 of an empty file: the write grows the file to three pages.
	p1 := NewPage()
	p1.WriteStringAt(88, "hello world", 20)
	p1.WriteInt32At(20, 12345)

	if err := manager.Write("testfile", 2, p1); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	p2 := NewPage()
	if err := manager.Read("testfile", 2, p2); err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !bytes.Equal(p1.Buf(), p2.Buf()) {
		t.Errorf("Page buffers do not match after read/write cycle")
	}

	info, err := os.Stat(manager.Path("testfile"))
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if info.Size() != 3*PageSize {
		t.Errorf("file size = %d, want %d", info.Size(), 3*PageSize)
	}
}

func TestManager_ReadPastEnd(t *testing.T) {
	manager, err := NewManager(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create file manager: %v", err)
	}
	defer manager.Close()

	if err := manager.Write("testfile", 0, NewPage()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	err = manager.Read("testfile", 1, NewPage())
	if !errors.Is(err, ErrNoSuchPage) {
		t.Errorf("Read() past end error = %v, want ErrNoSuchPage", err)
	}
}

func TestManager_Size(t *testing.T) {
	const filename = "testsizefile"
	manager, err := NewManager(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create file manager: %v", err)
	}
	defer manager.Close()

	testCases := []struct {
		name     string
		writeAt  int32
		wantSize int32
	}{
		{"First page", 0, 1},
		{"Second page", 1, 2},
		{"Rewrite existing page", 0, 2},
		{"Skip ahead", 4, 5},
	}

	size, err := manager.Size(filename)
	if err != nil {
		t.Fatalf("Size() on new file failed: %v", err)
	}
	if size != 0 {
		t.Errorf("Size() on new file = %d, want 0", size)
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := manager.Write(filename, tc.writeAt, NewPage()); err != nil {
				t.Fatalf("Write() failed: %v", err)
			}
			size, err := manager.Size(filename)
			if err != nil {
				t.Fatalf("Size() failed: %v", err)
			}
			if size != tc.wantSize {
				t.Errorf("Size() = %d, want %d", size, tc.wantSize)
			}
		})
	}
}

func TestTableIDFor(t *testing.T) {
	dir := t.TempDir()

	a1, err := TableIDFor(filepath.Join(dir, "a.dat"))
	if err != nil {
		t.Fatalf("TableIDFor() failed: %v", err)
	}
	a2, err := TableIDFor(filepath.Join(dir, ".", "a.dat"))
	if err != nil {
		t.Fatalf("TableIDFor() failed: %v", err)
	}
	b, err := TableIDFor(filepath.Join(dir, "b.dat"))
	if err != nil {
		t.Fatalf("TableIDFor() failed: %v", err)
	}

	if a1 != a2 {
		t.Errorf("same file produced different ids: %v and %v", a1, a2)
	}
	if a1 == b {
		t.Errorf("different files produced the same id %v", a1)
	}
}
