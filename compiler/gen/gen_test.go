package gen_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
)

// namespaces writes one file per model file listing its declarations.
type namespaces struct {
	name string
	fail error
}

func (n *namespaces) Name() string          { return n.name }
func (n *namespaces) FileExtension() string { return ".txt" }

func (n *namespaces) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		if n.fail != nil {
			return nil, n.fail
		}
		return nil, gen.Each(n, params, node.ModelFiles())
	case *introspect.ModelFile:
		w, err := gen.FileWriterOf(params)
		if err != nil {
			return nil, err
		}
		if err := w.OpenFile(node.Namespace() + n.FileExtension()); err != nil {
			return nil, err
		}
		if h := gen.HeaderOf(params); h != "" {
			if err := w.WriteLine(0, "# "+h); err != nil {
				return nil, err
			}
		}
		if err := gen.Each(n, params, node.AllDeclarations()); err != nil {
			return nil, err
		}
		return nil, w.CloseFile()
	case *introspect.ClassDeclaration:
		w, _ := gen.FileWriterOf(params)
		return nil, w.WriteLine(1, gen.PackageOf(params, "none")+"."+node.Name())
	default:
		return nil, gen.Unrecognised(node)
	}
}

func newManager(t *testing.T) *introspect.ModelManager {
	t.Helper()
	mm, err := introspect.NewModelManager()
	require.NoError(t, err)
	_, err = mm.AddModelFile(`namespace org.acme
asset Car identified by vin {
  o String vin
}
concept Engine {
  o Integer cylinders
}`, "acme.cto")
	require.NoError(t, err)
	return mm
}

func TestGenerate(t *testing.T) {
	mm := newManager(t)
	writers := map[string]*gen.MemoryWriter{}
	err := gen.Generate(context.Background(), mm,
		gen.WithGenerators(&namespaces{name: "a"}, &namespaces{name: "b"}),
		gen.WithHeader("generated"),
		gen.WithPackage("models"),
		gen.WithWorkers(1),
		gen.WithWriter(func(g gen.Generator) gen.FileWriter {
			w := gen.NewMemoryWriter()
			writers[g.Name()] = w
			return w
		}),
	)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	for _, w := range writers {
		assert.Equal(t, []string{"org.acme.txt", introspect.SystemNamespace + ".txt"}, w.Names())
		assert.Equal(t, []string{"# generated", "  models.Car", "  models.Engine"}, w.Lines("org.acme.txt"))
	}
}

func TestGenerate_FileSystem(t *testing.T) {
	dir := t.TempDir()
	err := gen.Generate(context.Background(), newManager(t),
		gen.WithTarget(dir),
		gen.WithGenerators(&namespaces{name: "names"}),
	)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "names", "org.acme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  none.Car\n  none.Engine\n", string(data))
}

func TestGenerate_Errors(t *testing.T) {
	mm := newManager(t)
	memory := gen.WithWriter(func(gen.Generator) gen.FileWriter { return gen.NewMemoryWriter() })

	t.Run("no generators", func(t *testing.T) {
		err := gen.Generate(context.Background(), mm, gen.WithTarget("out"))
		assert.ErrorIs(t, err, gen.ErrMissingConfig)
	})
	t.Run("no target", func(t *testing.T) {
		err := gen.Generate(context.Background(), mm, gen.WithGenerators(&namespaces{name: "a"}))
		assert.True(t, gen.IsConfigError(err))
	})
	t.Run("duplicate", func(t *testing.T) {
		err := gen.Generate(context.Background(), mm, memory,
			gen.WithGenerators(&namespaces{name: "a"}, &namespaces{name: "a"}))
		assert.ErrorContains(t, err, "duplicate generator")
	})
	t.Run("nil manager", func(t *testing.T) {
		err := gen.Generate(context.Background(), nil, memory, gen.WithGenerators(&namespaces{name: "a"}))
		assert.ErrorIs(t, err, gen.ErrMissingConfig)
	})
	t.Run("generator failure", func(t *testing.T) {
		boom := errors.New("boom")
		err := gen.Generate(context.Background(), mm, memory,
			gen.WithGenerators(&namespaces{name: "bad", fail: boom}))
		require.Error(t, err)
		assert.ErrorIs(t, err, gen.ErrGenerationFailed)
		assert.ErrorIs(t, err, boom)
		assert.True(t, gen.IsGenerationError(err))
		assert.Contains(t, err.Error(), "in generator bad")
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls atomic.Int32
		err := gen.Generate(ctx, mm, gen.WithWorkers(1),
			gen.WithWriter(func(gen.Generator) gen.FileWriter {
				calls.Add(1)
				return gen.NewMemoryWriter()
			}),
			gen.WithGenerators(&namespaces{name: "a"}))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls.Load())
	})
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name   string
		option gen.Option
	}{
		{"empty target", gen.WithTarget("")},
		{"empty package", gen.WithPackage("")},
		{"nil generator", gen.WithGenerators(nil)},
		{"zero workers", gen.WithWorkers(0)},
		{"nil writer", gen.WithWriter(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.NewConfig(tt.option)
			require.Error(t, err)
			assert.ErrorIs(t, err, gen.ErrMissingConfig)
		})
	}

	var c gen.Config
	err := c.ApplyAll(gen.WithTarget(""), gen.WithWorkers(-1), gen.WithHeader("h"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Target")
	assert.Equal(t, "h", c.Header)
}

func TestUnrecognised(t *testing.T) {
	_, err := newManager(t).Accept(&namespaces{name: "a"}, introspect.Parameters{})
	assert.ErrorContains(t, err, "no FileWriter in parameters")

	_, err = (&namespaces{name: "a"}).Visit(42, nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
	assert.Contains(t, err.Error(), "Unrecognised type: int")
}

func TestMemoryWriter(t *testing.T) {
	w := gen.NewMemoryWriter()
	assert.ErrorIs(t, w.WriteLine(0, "x"), gen.ErrNoOpenFile)
	assert.ErrorIs(t, w.CloseFile(), gen.ErrNoOpenFile)
	assert.Error(t, w.OpenFile(""))

	require.NoError(t, w.OpenFile("a/one.txt"))
	require.NoError(t, w.WriteLine(0, "top"))
	require.NoError(t, w.WriteLine(2, "nested"))
	require.NoError(t, w.OpenFile("two.txt"))
	require.NoError(t, gen.WriteText(w, 1, "x\n\ny\n"))
	require.NoError(t, w.CloseFile())

	assert.Equal(t, []string{"a/one.txt", "two.txt"}, w.Names())
	one, ok := w.File("a/one.txt")
	require.True(t, ok)
	assert.Equal(t, "top\n    nested\n", one)
	assert.Equal(t, []string{"  x", "", "  y"}, w.Lines("two.txt"))
	assert.Nil(t, w.Lines("missing"))
}

func TestFSWriter(t *testing.T) {
	dir := t.TempDir()
	w := gen.NewFSWriter(dir)

	require.NoError(t, w.OpenFile("pkg/model.go"))
	require.NoError(t, w.WriteLine(0, "package pkg"))
	require.NoError(t, w.WriteLine(0, "type  Car   struct{"))
	require.NoError(t, w.WriteLine(3, "Vin string"))
	require.NoError(t, w.WriteLine(0, "}"))
	require.NoError(t, w.CloseFile())

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "model.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "type Car struct {\n\tVin string\n}")
	assert.Equal(t, []string{filepath.Join(dir, "pkg", "model.go")}, w.Files())

	require.NoError(t, w.OpenFile("broken.go"))
	require.NoError(t, w.WriteLine(0, "package pkg"))
	require.NoError(t, w.WriteLine(0, "func {"))
	err = w.CloseFile()
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "broken.go.error"))
	assert.NoFileExists(t, filepath.Join(dir, "broken.go"))
}
