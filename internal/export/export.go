// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes reference-manager items and screened records as CSV.
// List-valued fields are flattened into a single "; "-delimited column.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pdiddy/litharvest/pkg/types"
)

// ItemRow is the CSV shape of a reference-manager item.
type ItemRow struct {
	Key        string        `csv:"key"`
	Collection string        `csv:"collection"`
	ItemType   string        `csv:"item_type"`
	Title      string        `csv:"title"`
	Authors    types.Authors `csv:"authors"`
	Date       string        `csv:"date"`
	DOI        string        `csv:"doi"`
	URL        string        `csv:"url"`
	Abstract   string        `csv:"abstract"`
	ParentItem string        `csv:"parent_item"`
}

// NewItemRow flattens an item.
func NewItemRow(it types.Item) ItemRow {
	return ItemRow{
		Key:        it.ID,
		Collection: it.CollectionID,
		ItemType:   it.ItemType,
		Title:      it.Title,
		Authors:    it.AuthorNames(),
		Date:       it.Date,
		DOI:        it.DOI,
		URL:        it.URL,
		Abstract:   it.Abstract,
		ParentItem: it.ParentItem,
	}
}

// WriteItems writes a header row and one row per item. Attachments and
// notes are skipped unless includeChildren is set.
func WriteItems(w io.Writer, items []types.Item, includeChildren bool) error {
	rows := make([]ItemRow, 0, len(items))
	for _, it := range items {
		if !includeChildren && (it.IsAttachment() || it.ItemType == "note") {
			continue
		}
		rows = append(rows, NewItemRow(it))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing items CSV: %w", err)
	}
	return nil
}

// WriteRecords writes screened records with the export's column names
// followed by is_agtech, agtech_sentence and agtech_reason.
func WriteRecords(w io.Writer, records []types.Record) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing records CSV: %w", err)
	}
	return nil
}

// WriteFile creates path and hands it to write, closing it afterwards.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
