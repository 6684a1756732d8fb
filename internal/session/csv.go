package session

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/filestore"
)

// CSVSink receives the lines of one entity type per call and appends them
// to that type's file.
type CSVSink interface {
	Append(ctx context.Context, name string, lines [][]string) error
}

// DirSink appends to <Dir>/<name>.csv on the local filesystem.
type DirSink struct {
	Dir string
}

func (d DirSink) Path(name string) string { return filepath.Join(d.Dir, name+".csv") }

func (d DirSink) Append(_ context.Context, name string, lines [][]string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to create csv directory", err)
	}
	f, err := os.OpenFile(d.Path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to open csv file", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(lines); err != nil {
		f.Close()
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to write csv file", err)
	}
	return f.Close()
}

// checkName rejects names that would resolve outside the sink's directory
// or prefix.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errs.Newf(errs.ErrKindInvalidInput, "%q cannot name a csv file", name)
	}
	return nil
}

// StoreSink appends to the object <Prefix>/<name>.csv in Bucket. Objects
// cannot be appended to in place, so the existing content is read back
// and rewritten with the new lines after it.
type StoreSink struct {
	Store  filestore.Store
	Bucket string
	Prefix string
}

func (s StoreSink) Key(name string) string { return path.Join(s.Prefix, name+".csv") }

func (s StoreSink) Append(ctx context.Context, name string, lines [][]string) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := s.Key(name)

	var buf bytes.Buffer
	obj, err := s.Store.GetObject(ctx, s.Bucket, key)
	switch {
	case err == nil:
		_, err = io.Copy(&buf, obj)
		obj.Close()
		if err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "failed to read "+key, err)
		}
	case errs.IsNotFound(err):
	default:
		return err
	}

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(lines); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to encode csv", err)
	}
	_, err = s.Store.PutObject(ctx, s.Bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv")
	return err
}
