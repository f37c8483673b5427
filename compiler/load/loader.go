package load

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/introspect"
)

// Ext is the file extension of model files.
const Ext = ".cto"

// Source is the text of a model file read from disk.
type Source struct {
	Path string
	Text string
}

// Sources reads the model files named by paths. Directories are walked
// recursively and contribute their .cto files in lexical order; files are
// read whatever their extension. Hidden directories and node_modules are
// skipped.
func Sources(paths ...string) ([]Source, error) {
	var out []Source
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		if !info.IsDir() {
			src, err := readSource(path)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
			continue
		}
		var files []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(p) == Ext {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", path)
		}
		sort.Strings(files)
		for _, f := range files {
			src, err := readSource(f)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		}
	}
	return out, nil
}

// Load reads the model files named by paths and adds them to mm as one
// batch.
func Load(mm *introspect.ModelManager, paths ...string) ([]*introspect.ModelFile, error) {
	srcs, err := Sources(paths...)
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, errors.Newf("no %s files found in %s", Ext, strings.Join(paths, ", "))
	}
	texts := make([]string, len(srcs))
	names := make([]string, len(srcs))
	for i, src := range srcs {
		texts[i], names[i] = src.Text, src.Path
	}
	return mm.AddModelFiles(texts, names)
}

func readSource(path string) (Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Source{}, errors.Wrapf(err, "read %s", path)
	}
	return Source{Path: path, Text: string(b)}, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
