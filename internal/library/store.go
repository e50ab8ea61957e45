// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library keeps a local SQLite copy of reference-manager
// collections and items, the screening verdicts of exported records, and
// the PDFs acquired for them.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litharvest/pkg/types"
)

const dbFile = "library.db"

// Store manages the library database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/library.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			item_type TEXT,
			title TEXT,
			creators TEXT,
			date TEXT,
			doi TEXT,
			url TEXT,
			abstract TEXT,
			parent_item TEXT,
			attachment TEXT,
			UNIQUE (id, collection_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_doi ON items(doi)`,
		`CREATE TABLE IF NOT EXISTS classifications (
			doi TEXT PRIMARY KEY,
			title TEXT,
			is_agtech TEXT NOT NULL,
			sentence TEXT,
			reason TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			collection_id TEXT,
			pdf_path TEXT,
			title TEXT,
			authors TEXT,
			pages INTEGER,
			producer TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveCollections upserts collection records.
func (s *Store) SaveCollections(ctx context.Context, cols []types.Collection) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO collections (id, name, parent) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name=excluded.name, parent=excluded.parent`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range cols {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Parent); err != nil {
				return fmt.Errorf("upserting collection %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// SaveItems upserts items, keyed by item and collection.
func (s *Store) SaveItems(ctx context.Context, items []types.Item) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO items (id, collection_id, item_type, title, creators, date, doi, url, abstract, parent_item, attachment)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id, collection_id) DO UPDATE SET
				item_type=excluded.item_type, title=excluded.title, creators=excluded.creators,
				date=excluded.date, doi=excluded.doi, url=excluded.url, abstract=excluded.abstract,
				parent_item=excluded.parent_item, attachment=excluded.attachment`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, it := range items {
			creatorsJSON, err := json.Marshal(it.Creators)
			if err != nil {
				return fmt.Errorf("encoding creators of %s: %w", it.ID, err)
			}
			var attachmentJSON []byte
			if it.Attachment != nil {
				if attachmentJSON, err = json.Marshal(it.Attachment); err != nil {
					return fmt.Errorf("encoding attachment of %s: %w", it.ID, err)
				}
			}
			_, err = stmt.ExecContext(ctx,
				it.ID, it.CollectionID, it.ItemType, it.Title, string(creatorsJSON),
				it.Date, it.DOI, it.URL, it.Abstract, it.ParentItem, nullString(attachmentJSON),
			)
			if err != nil {
				return fmt.Errorf("upserting item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// SaveClassifications upserts screening verdicts keyed by DOI. Records
// without a DOI are skipped and counted in the returned value.
func (s *Store) SaveClassifications(ctx context.Context, records []types.Record) (skipped int, err error) {
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO classifications (doi, title, is_agtech, sentence, reason) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(doi) DO UPDATE SET
				title=excluded.title, is_agtech=excluded.is_agtech,
				sentence=excluded.sentence, reason=excluded.reason`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			doi := normalizeDOI(r.DOI)
			if doi == "" {
				skipped++
				continue
			}
			if _, err := stmt.ExecContext(ctx, doi, r.Title, r.IsAgtech, r.Sentence, r.Reason); err != nil {
				return fmt.Errorf("upserting classification %s: %w", doi, err)
			}
		}
		return nil
	})
	return skipped, err
}

// SavePapers upserts acquired attachment records.
func (s *Store) SavePapers(ctx context.Context, papers []*types.Paper) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO papers (id, parent_id, collection_id, pdf_path, title, authors, pages, producer)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				parent_id=excluded.parent_id, collection_id=excluded.collection_id,
				pdf_path=excluded.pdf_path, title=excluded.title, authors=excluded.authors,
				pages=excluded.pages, producer=excluded.producer`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range papers {
			authorsJSON, err := json.Marshal(p.Authors)
			if err != nil {
				return fmt.Errorf("encoding authors of %s: %w", p.ID, err)
			}
			_, err = stmt.ExecContext(ctx,
				p.ID, p.ParentID, p.CollectionID, p.PDFPath, p.Title, string(authorsJSON), p.Pages, p.Producer)
			if err != nil {
				return fmt.Errorf("upserting paper %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// normalizeDOI lower-cases a DOI and strips resolver prefixes.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			doi = doi[len(p):]
			break
		}
	}
	return strings.ToLower(doi)
}
