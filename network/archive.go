package network

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/concerto/introspect"
)

// archiveFormat is bumped when the archive layout changes.
const archiveFormat = 1

// archive is the serialized form of a Definition.
type archive struct {
	Format   int           `json:"format" msgpack:"format"`
	Metadata Metadata      `json:"metadata" msgpack:"metadata"`
	Models   []ModelSource `json:"models" msgpack:"models"`
}

func (d *Definition) archive() archive {
	return archive{Format: archiveFormat, Metadata: d.meta, Models: d.ModelSources()}
}

func (a archive) definition(opts []introspect.Option) (*Definition, error) {
	if a.Format != archiveFormat {
		return nil, errors.Newf("unsupported archive format %d", a.Format)
	}
	d, err := New(a.Metadata, opts...)
	if err != nil {
		return nil, err
	}
	if len(a.Models) > 0 {
		if err := d.AddModelFiles(a.Models...); err != nil {
			return nil, errors.Wrapf(err, "load models of %s", d.Identifier())
		}
	}
	return d, nil
}

// MarshalJSON implements json.Marshaler.
func (d *Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.archive())
}

// FromJSON restores a definition written by MarshalJSON.
func FromJSON(data []byte, opts ...introspect.Option) (*Definition, error) {
	var a archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "decode network definition")
	}
	return a.definition(opts)
}

// MarshalArchive encodes the definition as a compact msgpack archive.
func (d *Definition) MarshalArchive() ([]byte, error) {
	data, err := msgpack.Marshal(d.archive())
	if err != nil {
		return nil, errors.Wrapf(err, "encode archive %s", d.Identifier())
	}
	return data, nil
}

// UnmarshalArchive restores a definition written by MarshalArchive.
func UnmarshalArchive(data []byte, opts ...introspect.Option) (*Definition, error) {
	var a archive
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "decode archive")
	}
	return a.definition(opts)
}
