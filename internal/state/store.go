// Package state persists engine blobs. Store keeps every saved version in
// SQLite with a per-key active pointer; BoltStore and MemStore keep only the
// latest blob per key.
package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS blob_versions (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL UNIQUE,
	key           TEXT NOT NULL,
	parent_id     TEXT,
	data          BLOB NOT NULL,
	checksum      TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	batch_id      TEXT,
	FOREIGN KEY (parent_id) REFERENCES blob_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_blob_versions_key ON blob_versions(key, seq);

CREATE TABLE IF NOT EXISTS active_blob (
	key           TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES blob_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned blobs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := migrateBatchColumn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate batch: %w", err)
	}
	return &Store{db: db}, nil
}

// migrateBatchColumn adds batch_id to databases created before batched saves.
func migrateBatchColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('blob_versions') WHERE name = 'batch_id'`,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.Exec(`ALTER TABLE blob_versions ADD COLUMN batch_id TEXT`); err != nil {
			return err
		}
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_blob_versions_batch ON blob_versions(batch_id)`)
	return err
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save
// SaveBlob stores data as a new version of key and makes it active.
func (s *Store) SaveBlob(key string, data []byte) error {
	_, err := s.SaveVersion(key, data)
	return err
}

// SaveVersion is SaveBlob returning the created version. The insert and the
// active pointer move happen in one transaction.
func (s *Store) SaveVersion(key string, data []byte) (Version, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	v, err := insertVersion(tx, key, data, "")
	if err != nil {
		return Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// SaveBlobs stores every blob as a new active version in one transaction.
// The versions share a batch ID, so RollbackBatch can restore them together.
func (s *Store) SaveBlobs(blobs map[string][]byte) error {
	_, err := s.SaveBatch(blobs)
	return err
}

// SaveBatch is SaveBlobs returning the created versions in key order.
func (s *Store) SaveBatch(blobs map[string][]byte) ([]Version, error) {
	keys := make([]string, 0, len(blobs))
	for k := range blobs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	batchID := uuid.New().String()
	out := make([]Version, 0, len(keys))
	for _, k := range keys {
		v, err := insertVersion(tx, k, blobs[k], batchID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func insertVersion(tx *sql.Tx, key string, data []byte, batchID string) (Version, error) {
	if data == nil {
		data = []byte{}
	}
	v := Version{
		VersionID: uuid.New().String(),
		Key:       key,
		BatchID:   batchID,
		Size:      len(data),
		Checksum:  checksum(data),
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}

	var parent sql.NullString
	err := tx.QueryRow(`SELECT version_id FROM active_blob WHERE key = ?`, key).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	v.ParentID = parent.String

	var parentPtr, batchPtr any
	if parent.Valid {
		parentPtr = parent.String
	}
	if batchID != "" {
		batchPtr = batchID
	}

	_, err = tx.Exec(
		`INSERT INTO blob_versions (version_id, key, parent_id, data, checksum, created_at, batch_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, key, parentPtr, data, v.Checksum, v.CreatedAt.Format(time.RFC3339Nano), batchPtr,
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}

	if err := setActive(tx, key, v.VersionID); err != nil {
		return Version{}, err
	}
	return v, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setActive(db execer, key, versionID string) error {
	_, err := db.Exec(
		`INSERT INTO active_blob (key, version_id) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET version_id = excluded.version_id`,
		key, versionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// #endregion save

// #region load
// LoadBlob returns the active version's data, or nil, nil when key has never
// been saved.
func (s *Store) LoadBlob(key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT v.data FROM active_blob a
		 JOIN blob_versions v ON v.version_id = a.version_id
		 WHERE a.key = ?`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// #endregion load

// #region get-version
// GetVersion retrieves a specific version and its data.
func (s *Store) GetVersion(id string) (Version, []byte, error) {
	var v Version
	var parentID sql.NullString
	var createdStr string
	var active, batchID sql.NullString
	var data []byte

	err := s.db.QueryRow(
		`SELECT v.version_id, v.key, v.parent_id, v.data, v.checksum, v.created_at, a.version_id, v.batch_id
		 FROM blob_versions v
		 LEFT JOIN active_blob a ON a.key = v.key AND a.version_id = v.version_id
		 WHERE v.version_id = ?`, id,
	).Scan(&v.VersionID, &v.Key, &parentID, &data, &v.Checksum, &createdStr, &active, &batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, nil, fmt.Errorf("get version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Version{}, nil, fmt.Errorf("get version %s: %w", id, err)
	}
	v.ParentID = parentID.String
	v.BatchID = batchID.String
	v.Size = len(data)
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	v.Active = active.Valid
	return v, data, nil
}

// #endregion get-version

// #region rollback
// Rollback sets key's active pointer to a previous version of the same key.
func (s *Store) Rollback(key, targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM blob_versions WHERE version_id = ? AND key = ?`, targetVersionID, key,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s of %s: %w", targetVersionID, key, ErrNotFound)
	}

	if err := setActive(s.db, key, targetVersionID); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// RollbackBatch makes the given version active again together with every
// version saved in the same batch, and returns the keys it moved. A version
// saved on its own rolls back just its key.
func (s *Store) RollbackBatch(versionID string) ([]string, error) {
	var key string
	var batchID sql.NullString
	err := s.db.QueryRow(
		`SELECT key, batch_id FROM blob_versions WHERE version_id = ?`, versionID,
	).Scan(&key, &batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %s: %w", versionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check version: %w", err)
	}
	if !batchID.Valid {
		if err := s.Rollback(key, versionID); err != nil {
			return nil, err
		}
		return []string{key}, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT key, version_id FROM blob_versions WHERE batch_id = ? ORDER BY key`, batchID.String,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	members := make(map[string]string)
	var keys []string
	for rows.Next() {
		var k, id string
		if err := rows.Scan(&k, &id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		members[k] = id
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}

	for _, k := range keys {
		if err := setActive(tx, k, members[k]); err != nil {
			return nil, fmt.Errorf("rollback %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return keys, nil
}

// #endregion rollback

// #region list-versions
// Versions returns the most recent versions of key, newest first. A limit
// of 0 or less returns all of them.
func (s *Store) Versions(key string, limit int) ([]Version, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT v.version_id, v.key, v.parent_id, length(v.data), v.checksum, v.created_at, a.version_id, v.batch_id
		 FROM blob_versions v
		 LEFT JOIN active_blob a ON a.key = v.key AND a.version_id = v.version_id
		 WHERE v.key = ?
		 ORDER BY v.seq DESC LIMIT ?`, key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		var parentID, active, batchID sql.NullString
		var createdStr string
		if err := rows.Scan(&v.VersionID, &v.Key, &parentID, &v.Size, &v.Checksum, &createdStr, &active, &batchID); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.ParentID = parentID.String
		v.BatchID = batchID.String
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		v.Active = active.Valid
		out = append(out, v)
	}
	return out, rows.Err()
}

// Keys returns every key with an active version, sorted.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM active_blob ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// #endregion list-versions

// #region checksum
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// #endregion checksum
