package state

import (
	"bytes"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-layout/internal/ports"
)

var (
	_ ports.BlobStore = (*Store)(nil)
	_ ports.BlobStore = (*BoltStore)(nil)
	_ ports.BlobStore = (*MemStore)(nil)

	_ ports.BatchSaver = (*Store)(nil)
	_ ports.BatchSaver = (*BoltStore)(nil)
	_ ports.BatchSaver = (*MemStore)(nil)
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMissingKeyReturnsNil(t *testing.T) {
	s := tempDB(t)

	data, err := s.LoadBlob("engine/weights")
	if err != nil {
		t.Fatalf("LoadBlob: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil for missing key, got %q", data)
	}
}

func TestSaveCreatesVersionChain(t *testing.T) {
	s := tempDB(t)

	v1, err := s.SaveVersion("engine/state", []byte(`{"epsilon":1}`))
	if err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	if v1.ParentID != "" {
		t.Fatalf("expected empty parent on first save, got %s", v1.ParentID)
	}

	v2, err := s.SaveVersion("engine/state", []byte(`{"epsilon":0.9}`))
	if err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}

	data, err := s.LoadBlob("engine/state")
	if err != nil {
		t.Fatalf("LoadBlob: %v", err)
	}
	if string(data) != `{"epsilon":0.9}` {
		t.Fatalf("expected latest blob, got %s", data)
	}

	versions, err := s.Versions("engine/state", 10)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionID != v2.VersionID || !versions[0].Active {
		t.Fatalf("expected newest active version first, got %+v", versions[0])
	}
	if versions[1].Active {
		t.Fatal("older version should not be active")
	}
	if versions[0].Size != len(`{"epsilon":0.9}`) {
		t.Fatalf("unexpected size %d", versions[0].Size)
	}
}

func TestRollback(t *testing.T) {
	s := tempDB(t)

	v1, _ := s.SaveVersion("engine/weights", []byte{1, 2, 3})
	s.SaveVersion("engine/weights", []byte{4, 5, 6})
	other, _ := s.SaveVersion("engine/state", []byte("x"))

	if err := s.Rollback("engine/weights", v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	data, _ := s.LoadBlob("engine/weights")
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("expected rolled-back blob, got %v", data)
	}

	// a save after rollback branches from the restored version
	v3, _ := s.SaveVersion("engine/weights", []byte{7})
	if v3.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s after rollback, got %s", v1.VersionID, v3.ParentID)
	}

	if err := s.Rollback("engine/weights", "no-such-version"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Rollback("engine/weights", other.VersionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolling back to another key's version should fail, got %v", err)
	}
}

func TestSaveBlobsRollsBackTogether(t *testing.T) {
	s := tempDB(t)

	first, err := s.SaveBatch(map[string][]byte{"engine/weights": {1}, "engine/state": []byte(`{"step":1}`)})
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if len(first) != 2 || first[0].BatchID == "" || first[0].BatchID != first[1].BatchID {
		t.Fatalf("expected two versions sharing a batch, got %+v", first)
	}
	if err := s.SaveBlobs(map[string][]byte{"engine/weights": {2}, "engine/state": []byte(`{"step":2}`)}); err != nil {
		t.Fatalf("SaveBlobs: %v", err)
	}

	// roll back through the state version; the weights follow
	var stateV string
	for _, v := range first {
		if v.Key == "engine/state" {
			stateV = v.VersionID
		}
	}
	keys, err := s.RollbackBatch(stateV)
	if err != nil {
		t.Fatalf("RollbackBatch: %v", err)
	}
	if len(keys) != 2 || keys[0] != "engine/state" || keys[1] != "engine/weights" {
		t.Fatalf("unexpected rolled back keys %v", keys)
	}
	w, _ := s.LoadBlob("engine/weights")
	st, _ := s.LoadBlob("engine/state")
	if !bytes.Equal(w, []byte{1}) || string(st) != `{"step":1}` {
		t.Fatalf("expected first batch active, got weights %v state %s", w, st)
	}

	got, _, err := s.GetVersion(stateV)
	if err != nil || !got.Active || got.BatchID != first[0].BatchID {
		t.Fatalf("expected active batched version, got %+v, %v", got, err)
	}

	if _, err := s.RollbackBatch("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRollbackBatchSingleVersion(t *testing.T) {
	s := tempDB(t)
	v1, _ := s.SaveVersion("k", []byte("one"))
	s.SaveVersion("k", []byte("two"))
	s.SaveVersion("other", []byte("x"))

	keys, err := s.RollbackBatch(v1.VersionID)
	if err != nil {
		t.Fatalf("RollbackBatch: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("expected only k, got %v", keys)
	}
	data, _ := s.LoadBlob("k")
	other, _ := s.LoadBlob("other")
	if string(data) != "one" || string(other) != "x" {
		t.Fatalf("unexpected blobs %q %q", data, other)
	}
}

func TestNewStoreAddsBatchColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`
CREATE TABLE blob_versions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id TEXT NOT NULL UNIQUE,
	key TEXT NOT NULL,
	parent_id TEXT,
	data BLOB NOT NULL,
	checksum TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE active_blob (key TEXT PRIMARY KEY, version_id TEXT NOT NULL);
INSERT INTO blob_versions (version_id, key, data, checksum, created_at)
	VALUES ('v0', 'k', x'01', 'c', '2026-01-01T00:00:00Z');
INSERT INTO active_blob (key, version_id) VALUES ('k', 'v0');`)
	db.Close()
	if err != nil {
		t.Fatalf("seed old schema: %v", err)
	}

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore on old schema: %v", err)
	}
	defer s.Close()
	if err := s.SaveBlobs(map[string][]byte{"k": {2}}); err != nil {
		t.Fatalf("SaveBlobs after migration: %v", err)
	}
	keys, err := s.RollbackBatch("v0")
	if err != nil || len(keys) != 1 {
		t.Fatalf("RollbackBatch of pre-batch version: %v, %v", keys, err)
	}
	data, _ := s.LoadBlob("k")
	if !bytes.Equal(data, []byte{1}) {
		t.Fatalf("expected original blob, got %v", data)
	}
}

func TestGetVersion(t *testing.T) {
	s := tempDB(t)
	v1, _ := s.SaveVersion("k", []byte("one"))
	s.SaveVersion("k", []byte("two"))

	got, data, err := s.GetVersion(v1.VersionID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if string(data) != "one" || got.Active || got.Checksum != v1.Checksum {
		t.Fatalf("unexpected version %+v data %q", got, data)
	}

	if _, _, err := s.GetVersion("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeysAndEmptyBlob(t *testing.T) {
	s := tempDB(t)
	s.SaveBlob("b", nil)
	s.SaveBlob("a", []byte("x"))

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	data, err := s.LoadBlob("b")
	if err != nil || data == nil || len(data) != 0 {
		t.Fatalf("expected empty non-nil blob, got %v, %v", data, err)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if err := s.SaveBlob("k", []byte("v")); err != nil {
		t.Fatalf("SaveBlob: %v", err)
	}
	data, _ := s.LoadBlob("k")
	if string(data) != "v" {
		t.Fatalf("expected v, got %q", data)
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.bolt")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}

	if data, err := s.LoadBlob("missing"); err != nil || data != nil {
		t.Fatalf("expected nil, nil for missing key, got %v, %v", data, err)
	}
	s.SaveBlob("engine/weights", []byte{9, 8, 7})
	s.SaveBlob("engine/weights", []byte{1})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// survives reopen
	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	data, _ := s.LoadBlob("engine/weights")
	if !bytes.Equal(data, []byte{1}) {
		t.Fatalf("expected latest blob, got %v", data)
	}
	keys, _ := s.Keys()
	if len(keys) != 1 || keys[0] != "engine/weights" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := s.SaveBlobs(map[string][]byte{"engine/weights": {2}, "engine/state": nil}); err != nil {
		t.Fatalf("SaveBlobs: %v", err)
	}
	data, _ = s.LoadBlob("engine/weights")
	st, _ := s.LoadBlob("engine/state")
	if !bytes.Equal(data, []byte{2}) || st == nil || len(st) != 0 {
		t.Fatalf("unexpected batch contents %v %v", data, st)
	}
}

func TestMemStoreCopies(t *testing.T) {
	m := NewMemStore()
	buf := []byte("abc")
	m.SaveBlob("k", buf)
	buf[0] = 'z'

	data, _ := m.LoadBlob("k")
	if string(data) != "abc" {
		t.Fatalf("store should keep its own copy, got %q", data)
	}
	data[1] = 'z'
	again, _ := m.LoadBlob("k")
	if string(again) != "abc" {
		t.Fatalf("loaded slice should not alias storage, got %q", again)
	}
	if data, _ := m.LoadBlob("missing"); data != nil {
		t.Fatalf("expected nil for missing key, got %q", data)
	}

	batch := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := m.SaveBlobs(batch); err != nil {
		t.Fatalf("SaveBlobs: %v", err)
	}
	batch["a"][0] = 'z'
	a, _ := m.LoadBlob("a")
	b, _ := m.LoadBlob("b")
	if string(a) != "1" || string(b) != "2" {
		t.Fatalf("unexpected batch contents %q %q", a, b)
	}
}
