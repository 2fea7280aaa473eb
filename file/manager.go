package file

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Manager performs page-granular I/O on the files of one database directory.
// It keeps every file it touches open until Close.
type Manager struct {
	mu         sync.Mutex
	directory  string
	syncWrites bool
	openFiles  map[string]*os.File
}

// NewManager creates a new file manager for a given database directory.
// It creates the directory if it does not already exist. Existing files are
// left untouched. With syncWrites every write reaches the disk before Write
// returns.
func NewManager(directory string, syncWrites bool) (*Manager, error) {
	if err := os.MkdirAll(directory, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "create database directory %s", directory)
	}

	return &Manager{
		directory:  directory,
		syncWrites: syncWrites,
		openFiles:  make(map[string]*os.File),
	}, nil
}

func (m *Manager) Directory() string {
	return m.directory
}

// Path returns the location of filename inside the database directory.
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.directory, filename)
}

// Read fills page with page number pageNo of filename. Reading at or past
// the end of the file fails with ErrNoSuchPage.
// It is safe for concurrent use.
func (m *Manager) Read(filename string, pageNo int32, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getOpenFile(filename)
	if err != nil {
		return err
	}

	offset := int64(pageNo) * PageSize
	n, err := f.ReadAt(page.Buf(), offset)
	if err == io.EOF || (err == nil && n < PageSize) {
		return errors.Wrapf(ErrNoSuchPage, "%s page %d", filename, pageNo)
	}
	if err != nil {
		return errors.Wrapf(err, "read %s page %d", filename, pageNo)
	}
	return nil
}

// Write stores page as page number pageNo of filename. Writing one page past
// the end grows the file by exactly one page.
// It is safe for concurrent use.
func (m *Manager) Write(filename string, pageNo int32, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(page.Buf()) != PageSize {
		return errors.Errorf("write %s page %d: page is %d bytes", filename, pageNo, len(page.Buf()))
	}

	f, err := m.getOpenFile(filename)
	if err != nil {
		return err
	}

	if _, err := f.WriteAt(page.Buf(), int64(pageNo)*PageSize); err != nil {
		return errors.Wrapf(err, "write %s page %d", filename, pageNo)
	}
	return nil
}

// Size returns the number of whole pages in filename.
func (m *Manager) Size(filename string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getOpenFile(filename)
	if err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", filename)
	}
	return int32(info.Size() / PageSize), nil
}

// Close closes every open file. The manager must not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for name, f := range m.openFiles {
		if err := f.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s", name)
		}
		delete(m.openFiles, name)
	}
	return first
}

// getOpenFile retrieves or opens the handle for filename.
// This method must be called with the mutex lock already held.
func (m *Manager) getOpenFile(filename string) (*os.File, error) {
	if f, ok := m.openFiles[filename]; ok {
		return f, nil
	}

	flags := os.O_RDWR | os.O_CREATE
	if m.syncWrites {
		flags |= os.O_SYNC
	}
	f, err := os.OpenFile(m.Path(filename), flags, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}

	m.openFiles[filename] = f
	return f, nil
}
