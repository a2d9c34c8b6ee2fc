package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
)

// WriteSnapshot encodes s as indented JSON and writes it to w.
func WriteSnapshot(s document.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteJSON exports d and writes it to w. It publishes the document's
// "export" event.
func WriteJSON(d *document.Document, w io.Writer) error {
	return WriteSnapshot(d.Export(), w)
}

// ExportJSON writes d to path. The file is written to a temporary sibling
// and renamed into place so a failed write never truncates an existing file.
func ExportJSON(d *document.Document, path string) error {
	return ExportSnapshot(d.Export(), path)
}

// ExportSnapshot writes s to path atomically.
func ExportSnapshot(s document.Snapshot, path string) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSnapshot(s, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
