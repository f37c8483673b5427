package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syssam/concerto/cmd/concerto/commands"
	"github.com/syssam/concerto/compiler/load"
	"github.com/syssam/concerto/store"
)

const fleet = `namespace org.acme.fleet

enum Status {
  o ACTIVE
  o RETIRED
}

@sql("table", "trucks")
asset Truck identified by plate {
  o String plate
  o Status status default="ACTIVE"
  o Integer axles range=[2,8]
}`

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

type env struct {
	dir    string
	models string
	config string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:    dir,
		models: filepath.Join(dir, "models"),
		config: filepath.Join(dir, "concerto.yaml"),
	}
	require.NoError(t, os.Mkdir(e.models, 0o755))
	e.write(t, "models/fleet.cto", fleet)
	e.write(t, "concerto.yaml", `models:
  dirs:
    - `+e.models+`
store:
  driver: sqlite
  dsn: file:`+filepath.Join(dir, "archives.db")+`?_pragma=foreign_keys(1)
`)
	return e
}

func (e *env) write(t *testing.T, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, name), []byte(text), 0o644))
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runContext(context.Background(), t, args...)
}

func (e *env) runContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := commands.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestValidate(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "validate", e.models)
	require.NoError(t, err)
	assert.Contains(t, out, "1 model files with 2 declarations are valid")
	assert.Contains(t, out, "org.acme.fleet")
	assert.Contains(t, out, "fleet.cto")

	// Without arguments the configured directories are used.
	out, err = e.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "org.acme.fleet")
}

func TestValidate_Invalid(t *testing.T) {
	e := newEnv(t)
	e.write(t, "models/broken.cto", "namespace org.acme.broken\n\nasset Car identified by vin {\n  o String vin\n  o Engine engine\n}")
	_, err := e.run(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undeclared type Engine")
}

func TestValidate_MissingConfig(t *testing.T) {
	e := newEnv(t)
	e.config = filepath.Join(e.dir, "missing.yaml")
	_, err := e.run(t, "validate", e.models)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestGenerate(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "gen")
	out, err := e.run(t, "generate", "-l", "golang,sql-sqlite", "-l", "jsonschema", "-o", target, "--workers", "2")
	require.NoError(t, err)
	for _, lang := range []string{"golang", "sql-sqlite", "jsonschema"} {
		assert.Contains(t, out, lang+": "+filepath.Join(target, lang))
		entries, err := os.ReadDir(filepath.Join(target, lang))
		require.NoError(t, err, lang)
		assert.NotEmpty(t, entries, lang)
	}
	ddl, err := os.ReadFile(filepath.Join(target, "sql-sqlite", "schema.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(ddl), "CREATE TABLE `trucks`")
	assert.Contains(t, string(ddl), "-- Code generated by concerto. DO NOT EDIT.")
}

func TestGenerate_UnknownLanguage(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "generate", "-l", "cobol", "-o", filepath.Join(e.dir, "gen"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown language "cobol"`)
	assert.Contains(t, err.Error(), "sql-postgres")
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{
		"golang", "graphql", "java", "jsonschema", "loopback", "plantuml",
		"sql-mysql", "sql-postgres", "sql-sqlite", "typescript",
	}, commands.Languages())
}

func TestInspect(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "inspect")
	require.NoError(t, err)
	var schemas []*load.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &schemas))
	require.Len(t, schemas, 2)
	assert.Equal(t, "Status", schemas[0].Name)
	assert.Equal(t, "Truck", schemas[1].Name)
	assert.Equal(t, "plate", schemas[1].Identifier)

	out, err = e.run(t, "inspect", "--format", "yaml", "--type", "org.acme.fleet.Truck")
	require.NoError(t, err)
	var truck load.Schema
	require.NoError(t, yaml.Unmarshal([]byte(out), &truck))
	assert.Equal(t, "org.acme.fleet", truck.Namespace)
	assert.Equal(t, "asset", truck.Kind)

	_, err = e.run(t, "inspect", "--format", "toml")
	assert.Error(t, err)
	_, err = e.run(t, "inspect", "--type", "org.acme.fleet.Boat")
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(e.dir, "fleet.cna")
	out, err := e.run(t, "archive", "create", "--name", "fleet", "--version", "1.0.0", "--engine", ">=0.1.0", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "created fleet@1.0.0 with 1 model files")
	require.FileExists(t, file)

	out, err = e.run(t, "archive", "push", file)
	require.NoError(t, err)
	assert.Contains(t, out, "pushed fleet@1.0.0")

	_, err = e.run(t, "archive", "push", file)
	assert.ErrorIs(t, err, store.ErrExists)

	out, err = e.run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "fleet@1.0.0")

	out, err = e.run(t, "archive", "list", "fleet@1.0.0", "fleet@9.9.9")
	require.NoError(t, err)
	assert.Contains(t, out, "fleet@1.0.0")
	assert.Contains(t, out, "archive not found")

	pulled := filepath.Join(e.dir, "pulled.json")
	_, err = e.run(t, "archive", "pull", "fleet@1.0.0", "-o", pulled)
	require.NoError(t, err)
	data, err := os.ReadFile(pulled)
	require.NoError(t, err)
	assert.Contains(t, string(data), "org.acme.fleet")

	_, err = e.run(t, "archive", "delete", "fleet@1.0.0")
	require.NoError(t, err)
	out, err = e.run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no archives stored")

	_, err = e.run(t, "archive", "pull", "fleet@1.0.0")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArchive_Engine(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "archive", "create", "--name", "fleet", "--version", "1.0.0", "--engine", ">=99.0.0",
		"-o", filepath.Join(e.dir, "fleet.cna"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires engine >=99.0.0")

	_, err = e.run(t, "archive", "create", "--name", "fleet", "--version", "one")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version", "--json")
	require.NoError(t, err)
	var info commands.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, commands.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)

	out, err = e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "concerto "+commands.Version)
}

func TestWatch(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out, err := e.runContext(ctx, t, "watch", "--debounce", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "1 model files with 2 declarations are valid")
	assert.Contains(t, out, "watching 1 paths")
}
