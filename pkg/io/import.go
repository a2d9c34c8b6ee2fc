package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
)

// legacyKey wraps the snapshot in files written by older editors.
const legacyKey = "drawflow"

// DecodeSnapshot decodes a snapshot from r, unwrapping the legacy
// {"drawflow": {...}} envelope when present.
func DecodeSnapshot(r io.Reader) (document.Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	if inner, ok := top[legacyKey]; ok && len(top) == 1 {
		raw = inner
	}

	var s document.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return s, nil
}

// ReadJSON decodes a document from r.
//
// ReadJSON returns an error if the JSON is malformed or if the snapshot
// breaks a document invariant. The returned document is independent of r.
// ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...document.Option) (*document.Document, error) {
	s, err := DecodeSnapshot(r)
	if err != nil {
		return nil, err
	}
	d := document.New(opts...)
	if err := d.Import(s, false); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return d, nil
}

// ImportJSON reads a document file at path.
func ImportJSON(path string, opts ...document.Option) (*document.Document, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts...)
}

// ImportSnapshot reads the snapshot stored at path without building a document.
func ImportSnapshot(path string) (document.Snapshot, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}
