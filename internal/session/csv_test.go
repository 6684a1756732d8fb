package session

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps objects in memory, keyed by bucket and key.
type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

var _ filestore.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memStore) Ping(context.Context) error                 { return nil }
func (m *memStore) Close() error                               { return nil }
func (m *memStore) EnsureBucket(context.Context, string) error { return nil }
func (m *memStore) PresignGetURL(context.Context, string, string, time.Duration) (string, error) {
	return "", errs.New(errs.ErrKindInvalidInput, "not supported")
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.objects[bucket+"/"+key] = b
	m.types[bucket+"/"+key] = contentType
	return &filestore.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: contentType}, nil
}

func (m *memStore) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	info, err := m.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return &memObject{Reader: bytes.NewReader(m.objects[bucket+"/"+key]), info: info}, nil
}

func (m *memStore) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "%s not found", key)
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: m.types[bucket+"/"+key]}, nil
}

func (m *memStore) ListObjects(context.Context, string, filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	return nil, nil
}

type memObject struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *memObject) Close() error                { return nil }
func (o *memObject) Info() *filestore.ObjectInfo { return o.info }

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	lines, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return lines
}

func TestFlush_CSV(t *testing.T) {
	dir := t.TempDir()
	sink := DirSink{Dir: dir}
	s, err := New(Options{Adapter: dialect.NewPostgres(), Catalog: fixture(), Strategy: StrategyCSV, CSV: sink})
	require.NoError(t, err)
	ctx := context.Background()

	for _, label := range []string{"red", "green", "it's blue"} {
		require.NoError(t, s.Stage(ctx, record(t, s, "tag").Set("label", label), entity.Insert))
	}
	err = s.Stage(ctx, record(t, s, "tag").Set("label", "red"), entity.Delete)
	assert.True(t, errs.IsInvalidInput(err), "csv only exports inserts")

	rep, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Statements)
	assert.Equal(t, StrategyCSV, rep.Strategy)

	b, err := os.ReadFile(sink.Path("tag"))
	require.NoError(t, err)
	lines := readCSV(t, b)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, l, 2, "one field per column")
	}
	assert.Equal(t, []string{"'red'", "NULL"}, lines[0])
	assert.Equal(t, "'it''s blue'", lines[2][0])

	require.NoError(t, s.Stage(ctx, record(t, s, "tag").Set("label", "gold").Set("note", "x"), entity.Insert))
	_, err = s.Flush(ctx)
	require.NoError(t, err)
	b, err = os.ReadFile(sink.Path("tag"))
	require.NoError(t, err)
	assert.Len(t, readCSV(t, b), 4, "later flushes append")
}

func TestFlush_CSVSkipsGeneratedColumns(t *testing.T) {
	dir := t.TempDir()
	sink := DirSink{Dir: dir}
	cat := generatedFixture()
	s, err := New(Options{Adapter: dialect.NewPostgres(), Catalog: cat, Strategy: StrategyCSV, CSV: sink})
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"Ada", "Bob", "Cy"} {
		require.NoError(t, s.Stage(ctx, record(t, s, "account").Set("name", name), entity.Insert))
	}
	_, err = s.Flush(ctx)
	require.NoError(t, err)

	account, err := cat.Type("account")
	require.NoError(t, err)
	writable := 0
	for _, c := range account.Table().Columns() {
		if !c.Generated() {
			writable++
		}
	}
	require.Equal(t, 1, writable)

	b, err := os.ReadFile(sink.Path("account"))
	require.NoError(t, err)
	lines := readCSV(t, b)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, l, writable, "generated id and created_at are not exported")
	}
	assert.Equal(t, []string{"'Cy'"}, lines[2])
}

func TestStoreSink(t *testing.T) {
	store := newMemStore()
	sink := StoreSink{Store: store, Bucket: "exports", Prefix: "run-1"}
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, "party", [][]string{{"1", "'Ada'"}}))
	require.NoError(t, sink.Append(ctx, "party", [][]string{{"2", "'Bob'"}, {"3", "NULL"}}))

	key := sink.Key("party")
	assert.Equal(t, "run-1/party.csv", key)
	assert.Equal(t, "text/csv", store.types["exports/"+key])
	assert.Equal(t, [][]string{{"1", "'Ada'"}, {"2", "'Bob'"}, {"3", "NULL"}}, readCSV(t, store.objects["exports/"+key]))
}

func TestSinks_RejectPathNames(t *testing.T) {
	root := t.TempDir()
	dir := DirSink{Dir: filepath.Join(root, "out")}
	store := StoreSink{Store: newMemStore(), Bucket: "exports", Prefix: "run-1"}
	ctx := context.Background()

	for _, name := range []string{"../escape", "a/b", `a\b`, "..", ""} {
		assert.True(t, errs.IsInvalidInput(dir.Append(ctx, name, [][]string{{"1"}})), name)
		assert.True(t, errs.IsInvalidInput(store.Append(ctx, name, [][]string{{"1"}})), name)
	}
	_, err := os.Stat(filepath.Join(root, "escape.csv"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, dir.Append(ctx, "party", [][]string{{"1"}}))
	assert.FileExists(t, filepath.Join(root, "out", "party.csv"))
}

func TestStoreSink_CSVFlush(t *testing.T) {
	store := newMemStore()
	s, err := New(Options{
		Adapter:  dialect.NewMySQL(),
		Catalog:  fixture(),
		Strategy: StrategyCSV,
		CSV:      StoreSink{Store: store, Bucket: "exports"},
	})
	require.NoError(t, err)
	ctx := context.Background()

	rec := record(t, s, "person").Set("person_id", 4).Set("name", "Ada")
	require.NoError(t, s.Stage(ctx, rec, entity.Insert))
	rep, err := s.Flush(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Batches, 2)

	assert.Equal(t, [][]string{{"4", "'Ada'", "NULL"}}, readCSV(t, store.objects["exports/party.csv"]))
	assert.Equal(t, [][]string{{"4", "NULL"}}, readCSV(t, store.objects["exports/person.csv"]))
}
