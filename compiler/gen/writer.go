package gen

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/imports"
)

// FileWriter receives the output of a generator one line at a time. A
// writer holds at most one open file; OpenFile implicitly closes the
// previous one.
type FileWriter interface {
	OpenFile(name string) error
	// WriteLine writes text indented by indent levels.
	WriteLine(indent int, text string) error
	CloseFile() error
}

// Indent is the text written once per indent level.
const Indent = "  "

// buffer accumulates the lines of the open file.
type buffer struct {
	name string
	open bool
	buf  bytes.Buffer
}

func (b *buffer) start(name string) error {
	if name == "" {
		return errors.New("concerto: empty file name")
	}
	b.name, b.open = filepath.ToSlash(filepath.Clean(name)), true
	b.buf.Reset()
	return nil
}

func (b *buffer) line(indent int, text string) error {
	if !b.open {
		return ErrNoOpenFile
	}
	for range indent {
		b.buf.WriteString(Indent)
	}
	b.buf.WriteString(text)
	b.buf.WriteByte('\n')
	return nil
}

// FSWriter writes files below a directory. Go sources are formatted with
// goimports when closed.
type FSWriter struct {
	dir string
	cur buffer

	mu    sync.Mutex
	files []string
}

// NewFSWriter returns a writer rooted at dir.
func NewFSWriter(dir string) *FSWriter {
	return &FSWriter{dir: dir}
}

// OpenFile implements FileWriter.
func (w *FSWriter) OpenFile(name string) error {
	if w.cur.open {
		if err := w.CloseFile(); err != nil {
			return err
		}
	}
	return w.cur.start(name)
}

// WriteLine implements FileWriter.
func (w *FSWriter) WriteLine(indent int, text string) error {
	return w.cur.line(indent, text)
}

// CloseFile implements FileWriter.
func (w *FSWriter) CloseFile() error {
	if !w.cur.open {
		return ErrNoOpenFile
	}
	w.cur.open = false
	path := filepath.Join(w.dir, filepath.FromSlash(w.cur.name))
	data := w.cur.buf.Bytes()
	if filepath.Ext(path) == ".go" {
		formatted, err := imports.Process(path, data, nil)
		if err != nil {
			// Keep the unformatted source next to the target for debugging.
			debugPath := path + ".error"
			_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
			_ = os.WriteFile(debugPath, data, 0o644)
			return errors.Wrapf(err, "format %s (unformatted written to %s)", w.cur.name, debugPath)
		}
		data = formatted
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", w.cur.name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", w.cur.name)
	}
	w.mu.Lock()
	w.files = append(w.files, path)
	w.mu.Unlock()
	return nil
}

// Files returns the paths written so far.
func (w *FSWriter) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.files)
}

// MemoryWriter keeps closed files in memory.
type MemoryWriter struct {
	cur buffer

	mu    sync.Mutex
	files map[string]string
}

// NewMemoryWriter returns an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{files: make(map[string]string)}
}

// OpenFile implements FileWriter.
func (w *MemoryWriter) OpenFile(name string) error {
	if w.cur.open {
		if err := w.CloseFile(); err != nil {
			return err
		}
	}
	return w.cur.start(name)
}

// WriteLine implements FileWriter.
func (w *MemoryWriter) WriteLine(indent int, text string) error {
	return w.cur.line(indent, text)
}

// CloseFile implements FileWriter.
func (w *MemoryWriter) CloseFile() error {
	if !w.cur.open {
		return ErrNoOpenFile
	}
	w.cur.open = false
	w.mu.Lock()
	w.files[w.cur.name] = w.cur.buf.String()
	w.mu.Unlock()
	return nil
}

// File returns the content of a closed file.
func (w *MemoryWriter) File(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.files[name]
	return s, ok
}

// Names returns the names of the closed files, sorted.
func (w *MemoryWriter) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.files))
	for name := range w.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lines returns the lines of a closed file without the trailing newline.
func (w *MemoryWriter) Lines(name string) []string {
	s, ok := w.File(name)
	if !ok {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// WriteText writes a multi-line text to w, one WriteLine call per line.
func WriteText(w FileWriter, indent int, text string) error {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if line == "" {
			if err := w.WriteLine(0, ""); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteLine(indent, line); err != nil {
			return err
		}
	}
	return nil
}
