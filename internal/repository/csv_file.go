// internal/repository/csv_file.go
package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
)

// readCSVFile decodes the file at path into out, a pointer to a slice of structs.
// A missing or blank file leaves out untouched.
func readCSVFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return appErrors.CorruptStore(path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := csvutil.Unmarshal(b, out); err != nil {
		return appErrors.CorruptStore(path, err)
	}
	return nil
}

// writeCSVFile replaces the file at path with header plus rows. The content goes
// to path+".tmp" first and is renamed over the target once synced.
func writeCSVFile(path string, header any, rows any) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(header); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// appendCSVRow appends a single row, writing the header first when the file is new.
func appendCSVRow(path string, row any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = st.Size() == 0
	if err := enc.Encode(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// csvTable is a whole-file collection of flat records such as accounts or links.
type csvTable[T any] struct {
	path string
	mu   sync.Mutex
}

func (t *csvTable[T]) load() ([]T, error) {
	rows := []T{}
	if err := readCSVFile(t.path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *csvTable[T]) List() ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

func (t *csvTable[T]) Replace(rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	return writeCSVFile(t.path, zero, rows)
}

// modify runs fn over the current rows and saves what it returns.
func (t *csvTable[T]) modify(fn func([]T) ([]T, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, err := t.load()
	if err != nil {
		return err
	}
	next, err := fn(rows)
	if err != nil {
		return err
	}
	var zero T
	return writeCSVFile(t.path, zero, next)
}
