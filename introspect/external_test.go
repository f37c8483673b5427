package introspect_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto/introspect"
)

const (
	baseURI   = "https://models.example.com/base.cto"
	commonURI = "https://models.example.com/common.cto"
)

const fleetModel = `namespace org.acme.fleet

import org.ext.base.Vehicle from https://models.example.com/base.cto

asset Truck extends Vehicle {
  o Integer axles
}`

const baseModel = `namespace org.ext.base

import org.ext.common.Tag from https://models.example.com/common.cto

abstract asset Vehicle identified by vin {
  o String vin
  o Tag[] tags optional
}`

const commonModel = `namespace org.ext.common

concept Tag {
  o String name
}`

// mapLoader serves model text from memory.
type mapLoader struct {
	mu    sync.Mutex
	texts map[string]string
	loads map[string]int
}

func newMapLoader(texts map[string]string) *mapLoader {
	return &mapLoader{texts: texts, loads: make(map[string]int)}
}

func (l *mapLoader) Accepts(uri string) bool {
	return len(uri) > 8 && uri[:8] == "https://"
}

func (l *mapLoader) Load(_ context.Context, uri string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[uri]++
	text, ok := l.texts[uri]
	if !ok {
		return "", errors.Newf("no model at %s", uri)
	}
	return text, nil
}

func (l *mapLoader) set(uri, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts[uri] = text
}

func TestModelManager_UpdateExternalModels(t *testing.T) {
	mm := newManager(t)
	fleet, err := introspect.NewModelFile(mm, fleetModel, "fleet.cto")
	require.NoError(t, err)

	// The file cannot be added on its own: its import is not registered.
	_, err = mm.AddModelFileObject(fleet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No registered namespace for type org.ext.base.Vehicle")

	loader := newMapLoader(map[string]string{baseURI: baseModel, commonURI: commonModel})
	downloaded, err := mm.UpdateExternalModels(context.Background(), loader, fleet)
	require.NoError(t, err)
	require.Len(t, downloaded, 2)
	assert.Equal(t, "@"+baseURI, downloaded[0].Name())
	assert.Equal(t, "@"+commonURI, downloaded[1].Name())
	assert.True(t, downloaded[0].IsExternal())
	assert.Equal(t, map[string]int{baseURI: 1, commonURI: 1}, loader.loads)
	assert.Same(t, fleet, mm.ModelFile("org.acme.fleet"))
	assert.ElementsMatch(t, []string{
		introspect.SystemNamespace, "org.acme.fleet", "org.ext.base", "org.ext.common",
	}, mm.Namespaces())

	truck, err := mm.Type("org.acme.fleet.Truck")
	require.NoError(t, err)
	assert.Equal(t, "vin", truck.IdentifierFieldName())

	// A second run refreshes the registered external files.
	loader.set(commonURI, commonModel+"\n\nconcept Label {\n  o String text\n}")
	_, err = mm.UpdateExternalModels(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.loads[commonURI])
	_, err = mm.Type("org.ext.common.Label")
	assert.NoError(t, err)
}

func TestModelManager_UpdateExternalModelsRollback(t *testing.T) {
	mm := newManager(t)
	fleet, err := introspect.NewModelFile(mm, fleetModel, "fleet.cto")
	require.NoError(t, err)
	loader := newMapLoader(map[string]string{baseURI: baseModel, commonURI: commonModel})
	_, err = mm.UpdateExternalModels(context.Background(), loader, fleet)
	require.NoError(t, err)
	base := mm.ModelFile("org.ext.base")
	namespaces := mm.Namespaces()

	// The new version drops the type the registered fleet model extends.
	loader.set(baseURI, "namespace org.ext.base\n\nasset Car identified by vin {\n  o String vin\n}")
	_, err = mm.UpdateExternalModels(context.Background(), loader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No type Vehicle in namespace org.ext.base")
	assert.Same(t, base, mm.ModelFile("org.ext.base"))
	assert.Equal(t, namespaces, mm.Namespaces())
	assert.NoError(t, mm.Validate())

	// A failed download leaves the registry alone too.
	loader.set(baseURI, baseModel)
	delete(loader.texts, commonURI)
	_, err = mm.UpdateExternalModels(context.Background(), loader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load "+commonURI)
	assert.Same(t, base, mm.ModelFile("org.ext.base"))
}

func TestModelManager_UpdateExternalModelsUnsupported(t *testing.T) {
	mm := newManager(t)
	mf, err := introspect.NewModelFile(mm, "namespace org.acme\n\nimport org.ext.Thing from ftp://models.example.com/thing.cto\n\nconcept C {\n  o Thing thing\n}", "acme.cto")
	require.NoError(t, err)
	_, err = mm.UpdateExternalModels(context.Background(), newMapLoader(nil), mf)
	assert.ErrorIs(t, err, introspect.ErrUnsupportedURI)
	assert.Nil(t, mm.ModelFile("org.acme"))

	_, err = mm.UpdateExternalModels(context.Background(), nil)
	assert.Error(t, err)
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/common.cto" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(commonModel))
	}))
	defer srv.Close()

	l := &introspect.HTTPLoader{Client: srv.Client()}
	assert.True(t, l.Accepts(srv.URL+"/common.cto"))
	assert.True(t, l.Accepts("https://models.example.com/x.cto"))
	assert.False(t, l.Accepts("file:///tmp/x.cto"))

	text, err := l.Load(context.Background(), srv.URL+"/common.cto")
	require.NoError(t, err)
	assert.Equal(t, commonModel, text)

	_, err = l.Load(context.Background(), srv.URL+"/missing.cto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	mm := newManager(t)
	mf, err := introspect.NewModelFile(mm, "namespace org.acme\n\nimport org.ext.common.Tag from "+srv.URL+"/common.cto\n\nconcept Labelled {\n  o Tag tag\n}", "acme.cto")
	require.NoError(t, err)
	downloaded, err := mm.UpdateExternalModels(context.Background(), l, mf)
	require.NoError(t, err)
	require.Len(t, downloaded, 1)
	assert.Equal(t, "org.ext.common", downloaded[0].Namespace())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, srv.URL+"/common.cto")
	assert.ErrorIs(t, err, context.Canceled)
}
