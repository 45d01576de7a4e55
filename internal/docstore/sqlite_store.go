package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/types"
)

// SQLiteStore implements Store on a single SQLite table. Fields are kept as
// a JSON object per row, so collections need no migrations of their own.
type SQLiteStore struct {
	db    *sql.DB
	clock clock
	bus   event.Publisher
}

// OpenSQLite opens dsn with the pure-Go SQLite driver and creates the
// documents table if needed.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// SetPublisher attaches an event bus. Events are published after commit.
func (s *SQLiteStore) SetPublisher(p event.Publisher) {
	s.bus = p
}

// SetClock overrides the timestamp source.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.clock.now = now
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTable creates the documents table and its collection index.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			fields     TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT,
			PRIMARY KEY (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_collection_created
			ON documents (collection, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection string, fields map[string]any) (types.Document, error) {
	if err := checkCollection(collection); err != nil {
		return types.Document{}, err
	}
	doc := types.Document{
		ID:         newID(),
		Collection: collection,
		Fields:     writableFields(fields),
		CreatedAt:  s.clock.next(),
	}
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return types.Document{}, fmt.Errorf("encoding fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at) VALUES (?, ?, ?, ?)`,
		collection, doc.ID, string(raw), formatTime(doc.CreatedAt))
	if err != nil {
		return types.Document{}, fmt.Errorf("inserting document: %w", err)
	}

	publish(ctx, s.bus, event.Created, collection, doc.ID, doc.CreatedAt)
	return s.Get(ctx, collection, doc.ID)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, partial map[string]any) (types.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Document{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	doc, err := scanDocument(collection, tx.QueryRowContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id))
	if err != nil {
		return types.Document{}, err
	}

	merge(doc.Fields, partial)
	at := s.clock.next()
	doc.UpdatedAt = &at

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return types.Document{}, fmt.Errorf("encoding fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(raw), formatTime(at), collection, id); err != nil {
		return types.Document{}, fmt.Errorf("updating document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Document{}, fmt.Errorf("committing update: %w", err)
	}

	publish(ctx, s.bus, event.Updated, collection, id, at)
	return s.Get(ctx, collection, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		publish(ctx, s.bus, event.Deleted, collection, id, s.clock.next())
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (types.Document, error) {
	return scanDocument(collection, s.db.QueryRowContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id))
}

func (s *SQLiteStore) List(ctx context.Context, collection string, order types.Order) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? ORDER BY created_at DESC`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(collection, rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	// Fields live in JSON, so arbitrary order fields are sorted here.
	types.SortDocuments(docs, order)
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(collection string, row rowScanner) (types.Document, error) {
	var (
		id, raw, created string
		updated          sql.NullString
	)
	if err := row.Scan(&id, &raw, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Document{}, ErrNotFound
		}
		return types.Document{}, fmt.Errorf("scanning document: %w", err)
	}

	doc := types.Document{ID: id, Collection: collection, Fields: map[string]any{}}
	if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
		return types.Document{}, fmt.Errorf("decoding fields of %s/%s: %w", collection, id, err)
	}
	t, err := parseTime(created)
	if err != nil {
		return types.Document{}, err
	}
	doc.CreatedAt = t
	if updated.Valid {
		u, err := parseTime(updated.String)
		if err != nil {
			return types.Document{}, err
		}
		doc.UpdatedAt = &u
	}
	return doc, nil
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime uses a fixed-width layout so that text ordering matches time
// ordering in the created_at index.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
