package awsartifact

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
)

// ErrTemplateFileNotFound is returned when the named file is not in the
// artifact zip.
var ErrTemplateFileNotFound = errors.New("template file not found in artifact")

// maxEntrySize bounds how much of a single zip entry is read into memory.
const maxEntrySize = 50 << 20

// ExtractFile returns the contents of the entry called name in the zip
// archive data. Names are compared after cleaning, so "./t.json" matches
// "t.json".
func ExtractFile(data []byte, name string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open artifact zip: %w", err)
	}
	want := path.Clean(name)
	for _, f := range r.File {
		if path.Clean(f.Name) != want || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in artifact zip: %w", f.Name, err)
		}
		defer rc.Close()
		body, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s from artifact zip: %w", f.Name, err)
		}
		if len(body) > maxEntrySize {
			return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateFileNotFound, name)
}

// BuildZip returns a zip archive holding a single entry name with contents
// body.
func BuildZip(name string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("write zip entry %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
