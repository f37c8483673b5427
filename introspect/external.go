package introspect

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedURI is returned when no loader accepts an import URI.
var ErrUnsupportedURI = errors.New("unsupported model file URI")

// ModelFileLoader fetches the text of model files named by the URIs of
// "import ... from <uri>" statements.
type ModelFileLoader interface {
	// Accepts reports whether the loader can fetch uri.
	Accepts(uri string) bool
	// Load returns the model text at uri.
	Load(ctx context.Context, uri string) (string, error)
}

// maxDownloads bounds the loads running at once.
const maxDownloads = 4

// UpdateExternalModels downloads the model files imported "from" a URI by
// the registered files and by files, following the imports of downloaded
// files in turn. Downloaded files are named "@" + URI; they replace the
// registered file of their namespace or are added. files are added in the
// same batch and must declare new namespaces.
//
// Downloads happen before the registry is touched. The combined registry is
// then validated as a whole and published only when every file is valid, so
// on error the registered files stay as they were. It returns the
// downloaded files.
func (mm *ModelManager) UpdateExternalModels(ctx context.Context, loader ModelFileLoader, files ...*ModelFile) ([]*ModelFile, error) {
	if loader == nil {
		return nil, errors.New("concerto: nil model file loader")
	}
	for _, mf := range files {
		if err := mm.owns(mf); err != nil {
			return nil, err
		}
	}
	roots := append(mm.ModelFiles(), files...)
	downloaded, err := mm.download(ctx, loader, roots)
	if err != nil {
		return nil, err
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	next := mm.registry().clone()
	for _, mf := range files {
		if mf.IsSystemModelFile() {
			return nil, namespaceError(ErrSystemNamespace, mf.Namespace(), "System namespace can not be updated")
		}
		if existing := next.file(mf.Namespace()); existing != nil {
			return nil, alreadyExists(mf, existing)
		}
		next.put(mf)
	}
	for _, mf := range downloaded {
		if mf.IsSystemModelFile() {
			return nil, namespaceError(ErrSystemNamespace, mf.Namespace(), "System namespace can not be updated")
		}
		next.put(mf)
	}
	for _, mf := range next.modelFiles() {
		if err := mf.validate(next); err != nil {
			mm.log.Warn("external model update rolled back",
				zap.Int("downloaded", len(downloaded)), zap.String("namespace", mf.Namespace()), zap.Error(err))
			return nil, err
		}
	}
	mm.state.Store(next)
	mm.log.Debug("external models updated", zap.Int("downloaded", len(downloaded)))
	return downloaded, nil
}

// download loads the external imports of roots breadth first. Each URI is
// loaded once.
func (mm *ModelManager) download(ctx context.Context, loader ModelFileLoader, roots []*ModelFile) ([]*ModelFile, error) {
	seen := make(map[string]bool)
	pending := externalURIs(roots, seen)
	var out []*ModelFile
	for len(pending) > 0 {
		for _, uri := range pending {
			if !loader.Accepts(uri) {
				return nil, errors.Wrapf(ErrUnsupportedURI, "concerto: %s", uri)
			}
		}
		level := make([]*ModelFile, len(pending))
		eg, ctx := errgroup.WithContext(ctx)
		eg.SetLimit(maxDownloads)
		for i, uri := range pending {
			eg.Go(func() error {
				text, err := loader.Load(ctx, uri)
				if err != nil {
					return errors.Wrapf(err, "concerto: load %s", uri)
				}
				mf, err := NewModelFile(mm, text, "@"+uri)
				if err != nil {
					return err
				}
				level[i] = mf
				mm.log.Debug("external model loaded", zap.String("uri", uri), zap.String("namespace", mf.Namespace()))
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		out = append(out, level...)
		pending = externalURIs(level, seen)
	}
	return out, nil
}

// externalURIs returns the import URIs of files not yet in seen, in import
// order, and adds them to seen.
func externalURIs(files []*ModelFile, seen map[string]bool) []string {
	var uris []string
	for _, mf := range files {
		for _, name := range mf.Imports() {
			uri := mf.ImportURI(name)
			if uri == "" || seen[uri] {
				continue
			}
			seen[uri] = true
			uris = append(uris, uri)
		}
	}
	return uris
}

// maxModelFileSize bounds the body read by HTTPLoader.
const maxModelFileSize = 8 << 20

// HTTPLoader loads model files over http and https.
type HTTPLoader struct {
	// Client sends the requests; nil means http.DefaultClient.
	Client *http.Client
}

var _ ModelFileLoader = (*HTTPLoader)(nil)

// Accepts implements ModelFileLoader.
func (*HTTPLoader) Accepts(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// Load implements ModelFileLoader.
func (l *HTTPLoader) Load(ctx context.Context, uri string) (string, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "get")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxModelFileSize))
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	return string(body), nil
}
