package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"item-console/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateName = errors.New("item name already exists")
)

// ChangeAction is the kind of row written to the change journal.
type ChangeAction string

const (
	ChangeInsert ChangeAction = "insert"
	ChangeUpdate ChangeAction = "update"
	ChangeDelete ChangeAction = "delete"
)

// Change is one row of the cdc_items journal, filled by triggers.
type Change struct {
	Seq    int64        `json:"cdc_id"`
	ItemID model.ItemID `json:"id"`
	Item   model.Item   `json:"item"`
	At     time.Time    `json:"timestamp"`
	Action ChangeAction `json:"action"`
}

// ItemStore persists items for the development items service.
type ItemStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// OpenItemStore opens (and migrates) the sqlite database at path.
// Use ":memory:" for a throwaway store.
func OpenItemStore(ctx context.Context, path string, logger *logrus.Logger) (*ItemStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &ItemStore{db: db, log: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ItemStore) Close() error { return s.db.Close() }

func (s *ItemStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			price REAL,
			tax REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS cdc_items (
			cdc_id INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			price REAL,
			tax REAL NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			action TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cdc_items_id ON cdc_items(id);`,
		`CREATE TRIGGER IF NOT EXISTS trg_insert_cdc_items
		AFTER INSERT ON items
		FOR EACH ROW
		BEGIN
			INSERT INTO cdc_items (id, name, description, price, tax, action)
			VALUES (NEW.id, NEW.name, NEW.description, NEW.price, NEW.tax, 'insert');
		END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_update_cdc_items
		AFTER UPDATE ON items
		FOR EACH ROW
		BEGIN
			INSERT INTO cdc_items (id, name, description, price, tax, action)
			VALUES (NEW.id, NEW.name, NEW.description, NEW.price, NEW.tax, 'update');
		END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_delete_cdc_items
		BEFORE DELETE ON items
		FOR EACH ROW
		BEGIN
			INSERT INTO cdc_items (id, name, description, price, tax, action)
			VALUES (OLD.id, OLD.name, OLD.description, OLD.price, OLD.tax, 'delete');
		END;`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate items db: %w", err)
		}
	}
	return nil
}

// List returns items in insertion order.
func (s *ItemStore) List(ctx context.Context) ([]model.StoredItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, price, tax FROM items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("could not list items: %w", err)
	}
	defer rows.Close()

	out := []model.StoredItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *ItemStore) Get(ctx context.Context, id model.ItemID) (model.StoredItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, price, tax FROM items WHERE id = ?`, id.String())
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredItem{}, ErrItemNotFound
	}
	return it, err
}

// Create stores a new item under a fresh UUID.
func (s *ItemStore) Create(ctx context.Context, item model.Item) (model.StoredItem, error) {
	id := model.ItemID(uuid.NewString())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, price, tax) VALUES (?, ?, ?, ?, ?)`,
		id.String(), item.Name, nullString(item.Description), nullFloat(item.Price), item.Tax)
	if err != nil {
		if isUniqueViolation(err) {
			s.log.Warnf("ItemStore: duplicate item name %q", item.Name)
			return model.StoredItem{}, ErrDuplicateName
		}
		return model.StoredItem{}, fmt.Errorf("could not create item: %w", err)
	}
	s.log.Infof("ItemStore: item with ID %s inserted", id)
	return model.StoredItem{ItemID: id, Item: item}, nil
}

// Update replaces every field of an existing item.
func (s *ItemStore) Update(ctx context.Context, id model.ItemID, item model.Item) (model.StoredItem, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, price = ?, tax = ? WHERE id = ?`,
		item.Name, nullString(item.Description), nullFloat(item.Price), item.Tax, id.String())
	if err != nil {
		if isUniqueViolation(err) {
			return model.StoredItem{}, ErrDuplicateName
		}
		return model.StoredItem{}, fmt.Errorf("could not update item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.StoredItem{}, ErrItemNotFound
	}
	s.log.Infof("ItemStore: item with ID %s updated", id)
	return model.StoredItem{ItemID: id, Item: item}, nil
}

func (s *ItemStore) Delete(ctx context.Context, id model.ItemID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("could not delete item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	s.log.Infof("ItemStore: item with ID %s deleted", id)
	return nil
}

// Changes returns the journal, oldest first. An empty id returns every change.
func (s *ItemStore) Changes(ctx context.Context, id model.ItemID) ([]Change, error) {
	q := `SELECT cdc_id, id, name, description, price, tax, timestamp, action FROM cdc_items`
	var args []any
	if id != "" {
		q += ` WHERE id = ?`
		args = append(args, id.String())
	}
	q += ` ORDER BY cdc_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list changes: %w", err)
	}
	defer rows.Close()

	out := []Change{}
	for rows.Next() {
		var (
			c     Change
			id    string
			desc  sql.NullString
			price sql.NullFloat64
			ts    string
		)
		if err := rows.Scan(&c.Seq, &id, &c.Item.Name, &desc, &price, &c.Item.Tax, &ts, &c.Action); err != nil {
			return nil, err
		}
		c.ItemID = model.ItemID(id)
		c.Item.Description = fromNullString(desc)
		c.Item.Price = fromNullFloat(price)
		if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
			c.At = t.UTC()
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.StoredItem, error) {
	var (
		id    string
		it    model.Item
		desc  sql.NullString
		price sql.NullFloat64
	)
	if err := sc.Scan(&id, &it.Name, &desc, &price, &it.Tax); err != nil {
		return model.StoredItem{}, err
	}
	it.Description = fromNullString(desc)
	it.Price = fromNullFloat(price)
	return model.StoredItem{ItemID: model.ItemID(id), Item: it}, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
