package artifactcache

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Storage keeps archive bytes on disk. Uploaded chunks are staged per entry
// under tmp/<id> and concatenated on commit.
type Storage struct {
	rootDir string
}

func NewStorage(rootDir string) (*Storage, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{rootDir: rootDir}, nil
}

// Exist reports whether the committed archive of entry id is on disk.
func (s *Storage) Exist(id uint64) (bool, error) {
	_, err := os.Stat(s.archivePath(id))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// Write stages a chunk starting at offset. Chunks are named by their
// zero-padded offset so a lexical sort restores upload order.
func (s *Storage) Write(id uint64, offset int64, reader io.Reader) error {
	return writeFile(s.chunkPath(id, offset), reader)
}

// Commit assembles the staged chunks and returns the archive size. A
// negative size skips the size check.
func (s *Storage) Commit(id uint64, size int64) (int64, error) {
	defer os.RemoveAll(s.chunkDir(id))

	chunks, err := s.chunks(id)
	if err != nil {
		return 0, err
	}

	readers := make([]io.Reader, 0, len(chunks))
	for _, chunk := range chunks {
		f, err := os.Open(chunk)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	counter := &countingReader{r: io.MultiReader(readers...)}
	name := s.archivePath(id)
	if err := writeFile(name, counter); err != nil {
		_ = os.Remove(name)
		return 0, err
	}
	if size >= 0 && counter.n != size {
		_ = os.Remove(name)
		return 0, errors.Errorf("broken file: %v != %v", counter.n, size)
	}
	return counter.n, nil
}

func (s *Storage) Serve(w http.ResponseWriter, r *http.Request, id uint64) {
	http.ServeFile(w, r, s.archivePath(id))
}

// Remove deletes the archive and any chunks still staged for id.
func (s *Storage) Remove(id uint64) {
	_ = os.Remove(s.archivePath(id))
	_ = os.RemoveAll(s.chunkDir(id))
}

func (s *Storage) archivePath(id uint64) string {
	return filepath.Join(s.rootDir, fmt.Sprintf("%02x", id%0xff), fmt.Sprint(id))
}

func (s *Storage) chunkDir(id uint64) string {
	return filepath.Join(s.rootDir, "tmp", fmt.Sprint(id))
}

func (s *Storage) chunkPath(id uint64, offset int64) string {
	return filepath.Join(s.chunkDir(id), fmt.Sprintf("%016x", offset))
}

func (s *Storage) chunks(id uint64) ([]string, error) {
	dir := s.chunkDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeFile(name string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
