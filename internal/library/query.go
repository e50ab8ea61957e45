// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/litharvest/pkg/types"
)

const itemColumns = `id, collection_id, item_type, title, creators, date, doi, url, abstract, parent_item, attachment`

// Collections returns all stored collections ordered by name.
func (s *Store) Collections(ctx context.Context) ([]types.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent FROM collections ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []types.Collection
	for rows.Next() {
		var (
			c      types.Collection
			parent sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &parent); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		c.Parent = parent.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// Items returns the items stored for a collection in insertion order.
func (s *Store) Items(ctx context.Context, collectionID string) ([]types.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE collection_id = ? ORDER BY rowid`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	return scanItems(rows)
}

// Search returns items whose title or abstract contains every word of
// query, case-insensitively, up to limit results.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]types.Item, error) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 20
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT ` + itemColumns + ` FROM items WHERE 1=1`)
	for _, w := range words {
		qb.WriteString(` AND (lower(title) LIKE ? ESCAPE '\' OR lower(abstract) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(w) + "%"
		args = append(args, pattern, pattern)
	}
	qb.WriteString(` ORDER BY rowid`)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	all, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	// An item filed in several collections is stored once per collection.
	seen := make(map[string]bool)
	var out []types.Item
	for _, it := range all {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Classification returns the stored verdict for a DOI.
func (s *Store) Classification(ctx context.Context, doi string) (types.Classification, bool, error) {
	var (
		c                types.Classification
		sentence, reason sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT is_agtech, sentence, reason FROM classifications WHERE doi = ?`, normalizeDOI(doi),
	).Scan(&c.IsAgtech, &sentence, &reason)
	if err == sql.ErrNoRows {
		return types.Classification{}, false, nil
	}
	if err != nil {
		return types.Classification{}, false, fmt.Errorf("querying classification: %w", err)
	}
	c.Sentence, c.Reason = sentence.String, reason.String
	return c, true, nil
}

func scanItems(rows *sql.Rows) ([]types.Item, error) {
	defer rows.Close()

	var out []types.Item
	for rows.Next() {
		var (
			it                                  types.Item
			itemType, title, creators, date     sql.NullString
			doi, url, abstract, parent, attJSON sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.CollectionID, &itemType, &title, &creators,
			&date, &doi, &url, &abstract, &parent, &attJSON); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.ItemType, it.Title, it.Date = itemType.String, title.String, date.String
		it.DOI, it.URL, it.Abstract, it.ParentItem = doi.String, url.String, abstract.String, parent.String
		if creators.Valid && creators.String != "" {
			if err := json.Unmarshal([]byte(creators.String), &it.Creators); err != nil {
				return nil, fmt.Errorf("decoding creators of %s: %w", it.ID, err)
			}
		}
		if attJSON.Valid {
			var a types.Attachment
			if err := json.Unmarshal([]byte(attJSON.String), &a); err != nil {
				return nil, fmt.Errorf("decoding attachment of %s: %w", it.ID, err)
			}
			it.Attachment = &a
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
