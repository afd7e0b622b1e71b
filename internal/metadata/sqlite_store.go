package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS object (
	inode         INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id     TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	is_dir        INTEGER NOT NULL,
	size          INTEGER NOT NULL,
	last_modified INTEGER NOT NULL,
	download_url  TEXT NOT NULL,
	can_trash     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS parent (
	child_remote_id  TEXT NOT NULL,
	parent_remote_id TEXT NOT NULL,
	PRIMARY KEY (child_remote_id, parent_remote_id)
);

CREATE INDEX IF NOT EXISTS idx_parent_parent_id ON parent(parent_remote_id);

CREATE TABLE IF NOT EXISTS cursor (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL
);
`

// SQLiteStore is the embedded-SQL implementation of Store, backed by
// database/sql and the mattn/go-sqlite3 driver. All operations are
// serialized through mu: short queries and transactions only, never
// network I/O while held.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metadata: opening %q: %w", path, err)
	}
	// The store is already single-writer-serialized by our own mutex; force
	// a single underlying connection so SQLite never sees concurrent writers
	// from Go's connection pool.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("metadata: creating schema: %w", err)
	}

	var inode uint64
	err := s.db.QueryRowContext(ctx, `SELECT inode FROM object WHERE remote_id = ?`, RootRemoteID).Scan(&inode)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO object (inode, remote_id, name, is_dir, size, last_modified, download_url, can_trash)
			VALUES (?, ?, '', 1, 0, 0, '', 0)`, RootInode, RootRemoteID)
		if err != nil {
			return fmt.Errorf("metadata: inserting pseudo-root: %w", err)
		}
	case err != nil:
		return fmt.Errorf("metadata: checking for pseudo-root: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ProcessChanges(ctx context.Context, deltas []Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metadata: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		if d.Removed {
			if err := deleteObject(ctx, tx, d.RemoteID); err != nil {
				return err
			}
			continue
		}

		if err := upsertObject(ctx, tx, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metadata: committing batch: %w", err)
	}

	return nil
}

func deleteObject(ctx context.Context, tx *sql.Tx, remoteID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM object WHERE remote_id = ?`, remoteID); err != nil {
		return fmt.Errorf("metadata: deleting object %q: %w", remoteID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parent WHERE child_remote_id = ? OR parent_remote_id = ?`, remoteID, remoteID); err != nil {
		return fmt.Errorf("metadata: deleting edges for %q: %w", remoteID, err)
	}
	return nil
}

func upsertObject(ctx context.Context, tx *sql.Tx, d Delta) error {
	o := d.Object
	_, err := tx.ExecContext(ctx, `
		INSERT INTO object (remote_id, name, is_dir, size, last_modified, download_url, can_trash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			name = excluded.name,
			is_dir = excluded.is_dir,
			size = excluded.size,
			last_modified = excluded.last_modified,
			download_url = excluded.download_url,
			can_trash = excluded.can_trash`,
		o.RemoteID, o.Name, boolToInt(o.IsDir), o.Size, o.LastModified.Unix(), o.DownloadURL, boolToInt(o.CanTrash))
	if err != nil {
		return fmt.Errorf("metadata: upserting object %q: %w", o.RemoteID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM parent WHERE child_remote_id = ?`, o.RemoteID); err != nil {
		return fmt.Errorf("metadata: clearing edges for %q: %w", o.RemoteID, err)
	}

	for _, parentID := range d.Parents {
		if _, err := tx.ExecContext(ctx, `INSERT INTO parent (child_remote_id, parent_remote_id) VALUES (?, ?)`, o.RemoteID, parentID); err != nil {
			return fmt.Errorf("metadata: inserting edge %q -> %q: %w", o.RemoteID, parentID, err)
		}
	}

	return nil
}

func (s *SQLiteStore) GetCursor(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM cursor WHERE id = 1`).Scan(&token)
	switch {
	case err == sql.ErrNoRows:
		return "1", nil
	case err != nil:
		return "", fmt.Errorf("metadata: reading cursor: %w", err)
	}
	return token, nil
}

func (s *SQLiteStore) StoreCursor(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO cursor (id, token) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token`, token)
	if err != nil {
		return fmt.Errorf("metadata: storing cursor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByInode(ctx context.Context, inode uint64) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return scanObject(s.db.QueryRowContext(ctx, `
		SELECT inode, remote_id, name, is_dir, size, last_modified, download_url, can_trash
		FROM object WHERE inode = ?`, inode))
}

func (s *SQLiteStore) GetChildByName(ctx context.Context, parentInode uint64, name string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return scanObject(s.db.QueryRowContext(ctx, `
		SELECT o.inode, o.remote_id, o.name, o.is_dir, o.size, o.last_modified, o.download_url, o.can_trash
		FROM object o
		JOIN parent p ON p.child_remote_id = o.remote_id
		JOIN object op ON op.remote_id = p.parent_remote_id
		WHERE op.inode = ? AND o.name = ?`, parentInode, name))
}

func (s *SQLiteStore) ListChildren(ctx context.Context, parentInode uint64, offset, limit int) ([]Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.inode, o.remote_id, o.name, o.is_dir, o.size, o.last_modified, o.download_url, o.can_trash
		FROM object o
		JOIN parent p ON p.child_remote_id = o.remote_id
		JOIN object op ON op.remote_id = p.parent_remote_id
		WHERE op.inode = ?
		ORDER BY o.inode ASC
		LIMIT ? OFFSET ?`, parentInode, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("metadata: listing children of inode %d: %w", parentInode, err)
	}
	defer rows.Close()

	var children []Object
	for rows.Next() {
		o, err := scanObjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("metadata: scanning child row: %w", err)
		}
		children = append(children, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: iterating children of inode %d: %w", parentInode, err)
	}

	return children, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (Object, error) {
	o, err := scanObjectRow(row)
	if err == sql.ErrNoRows {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("metadata: scanning object: %w", err)
	}
	return o, nil
}

func scanObjectRow(row rowScanner) (Object, error) {
	var (
		o        Object
		isDir    int
		canTrash int
		lastMod  int64
	)
	if err := row.Scan(&o.Inode, &o.RemoteID, &o.Name, &isDir, &o.Size, &lastMod, &o.DownloadURL, &canTrash); err != nil {
		return Object{}, err
	}
	o.IsDir = isDir != 0
	o.CanTrash = canTrash != 0
	o.LastModified = time.Unix(lastMod, 0).UTC()
	return o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
