package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/catalogmatch/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	price_min REAL,
	price_max REAL,
	tags TEXT NOT NULL DEFAULT '[]',
	keywords TEXT NOT NULL DEFAULT '[]',
	popularity INTEGER NOT NULL DEFAULT 0,
	options TEXT NOT NULL DEFAULT '[]',
	embedding BLOB,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_items_category ON catalog_items(lower(category));
`

const selectColumns = `SELECT id, title, category, price, price_min, price_max, tags, keywords,
	popularity, options, embedding, created_at FROM catalog_items`

// SQLiteStore is a domain.CatalogRepository persisted in SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" keeps it in process.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	// every :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindByCategory returns items whose category equals the given one, ignoring case
func (s *SQLiteStore) FindByCategory(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE lower(category) = lower(?) ORDER BY rowid`, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("%w: query category: %v", domain.ErrCatalogUnavailable, err)
	}
	return scanItems(rows)
}

// FindByIDs returns the items that exist, in the order requested
func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query ids: %v", domain.ErrCatalogUnavailable, err)
	}
	found, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.CatalogItem, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}
	out := make([]domain.CatalogItem, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, item)
		}
	}
	return out, nil
}

// All returns every item in insertion order
func (s *SQLiteStore) All(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query all: %v", domain.ErrCatalogUnavailable, err)
	}
	return scanItems(rows)
}

// Upsert validates and writes items in one transaction. An incoming item
// without an embedding keeps the stored one.
func (s *SQLiteStore) Upsert(ctx context.Context, items []domain.CatalogItem) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_items (id, title, category, price, price_min, price_max, tags, keywords,
			popularity, options, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			price = excluded.price,
			price_min = excluded.price_min,
			price_max = excluded.price_max,
			tags = excluded.tags,
			keywords = excluded.keywords,
			popularity = excluded.popularity,
			options = excluded.options,
			embedding = COALESCE(excluded.embedding, catalog_items.embedding),
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		args, err := itemArgs(item)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateEmbedding replaces the stored vector of one item
func (s *SQLiteStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_items SET embedding = ? WHERE id = ?`, encodeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("update embedding %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return nil
}

// Delete removes an item; missing ids are ignored
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func itemArgs(item domain.CatalogItem) ([]interface{}, error) {
	tags, err := json.Marshal(nonNil(item.Tags))
	if err != nil {
		return nil, err
	}
	keywords, err := json.Marshal(nonNil(item.PreferenceKeywords))
	if err != nil {
		return nil, err
	}
	options := []byte("[]")
	if len(item.Options) > 0 {
		if options, err = json.Marshal(item.Options); err != nil {
			return nil, err
		}
	}

	var priceMin, priceMax sql.NullFloat64
	if item.PriceRange != nil {
		priceMin = sql.NullFloat64{Float64: item.PriceRange.Min, Valid: true}
		priceMax = sql.NullFloat64{Float64: item.PriceRange.Max, Valid: true}
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return []interface{}{
		item.ID, item.Title, item.Category, item.Price, priceMin, priceMax,
		string(tags), string(keywords), item.Popularity, string(options),
		encodeVector(item.Embedding), createdAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func scanItems(rows *sql.Rows) ([]domain.CatalogItem, error) {
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var (
			item                    domain.CatalogItem
			priceMin, priceMax      sql.NullFloat64
			tags, keywords, options string
			embedding               []byte
			createdAt               string
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Category, &item.Price, &priceMin, &priceMax,
			&tags, &keywords, &item.Popularity, &options, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan item: %v", domain.ErrCatalogUnavailable, err)
		}

		if priceMin.Valid && priceMax.Valid {
			item.PriceRange = &domain.PriceRange{Min: priceMin.Float64, Max: priceMax.Float64}
		}
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(keywords), &item.PreferenceKeywords); err != nil {
			return nil, fmt.Errorf("decode keywords of %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(options), &item.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", item.ID, err)
		}
		if len(item.Options) == 0 {
			item.Options = nil
		}
		vec, err := decodeVector(embedding)
		if err != nil {
			return nil, fmt.Errorf("decode embedding of %s: %w", item.ID, err)
		}
		item.Embedding = vec
		if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("decode created_at of %s: %w", item.ID, err)
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return items, nil
}

// encodeVector packs a vector as little-endian float32s; empty vectors become NULL
func encodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, errors.New("embedding blob length is not a multiple of 4")
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
