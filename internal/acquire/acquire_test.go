// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litharvest/internal/pdfmeta"
	"github.com/pdiddy/litharvest/pkg/types"
)

// fakeSource serves a fixed item list and file bodies keyed by attachment.
type fakeSource struct {
	items     []types.Item
	files     map[string]string
	failing   map[string]bool
	downloads []string
	listErr   error
}

func (s *fakeSource) AllItems(context.Context, string) ([]types.Collection, []types.Item, error) {
	return nil, s.items, s.listErr
}

func (s *fakeSource) Download(_ context.Context, key string, w io.Writer) (int64, error) {
	s.downloads = append(s.downloads, key)
	if s.failing[key] {
		// Write a partial body before failing.
		w.Write([]byte("%PDF-partial"))
		return 0, errors.New("connection reset")
	}
	n, err := io.WriteString(w, s.files[key])
	return int64(n), err
}

func withReadPDF(t *testing.T, fn func(string) (pdfmeta.Info, error)) {
	t.Helper()
	old := readPDF
	readPDF = fn
	t.Cleanup(func() { readPDF = old })
}

func pdfAttachment(id, parent, collection string) types.Item {
	return types.Item{
		ID: id, ItemType: "attachment", ParentItem: parent, CollectionID: collection,
		Attachment: &types.Attachment{ContentType: "application/pdf", Filename: id + ".pdf"},
	}
}

func library() *fakeSource {
	return &fakeSource{
		items: []types.Item{
			{ID: "I1", ItemType: "journalArticle", Title: "Soil sensors", CollectionID: "P",
				Creators: []types.Creator{{FirstName: "Ada", LastName: "Lovelace"}}},
			pdfAttachment("A1", "I1", "P"),
			{ID: "A2", ItemType: "attachment", ParentItem: "I1", CollectionID: "P",
				Attachment: &types.Attachment{ContentType: "text/html"}},
			pdfAttachment("A3", "", "C"),
		},
		files: map[string]string{"A1": "%PDF-1.7 one", "A3": "%PDF-1.7 three"},
	}
}

func TestAcquireBatch(t *testing.T) {
	withReadPDF(t, func(path string) (pdfmeta.Info, error) {
		return pdfmeta.Info{Path: path, Title: "Embedded title", Author: "X; Y", Pages: 9, Producer: "LaTeX"}, nil
	})
	dir := t.TempDir()
	src := library()
	var buf bytes.Buffer

	result, err := AcquireBatch(context.Background(), src, "P", types.AcquisitionConfig{PapersDir: dir}, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Downloaded)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []string{"A1", "A3"}, src.downloads)

	data, err := os.ReadFile(filepath.Join(dir, "raw", "A1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 one", string(data))

	p1, err := readMetadata(filepath.Join(dir, "metadata", "A1.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Soil sensors", p1.Title, "parent title wins")
	assert.Equal(t, []string{"Ada Lovelace"}, p1.Authors)
	assert.Equal(t, "I1", p1.ParentID)
	assert.Equal(t, 9, p1.Pages)

	p3, err := readMetadata(filepath.Join(dir, "metadata", "A3.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Embedded title", p3.Title, "standalone attachment falls back to PDF title")
	assert.Equal(t, []string{"X", "Y"}, p3.Authors)
	assert.Equal(t, "C", p3.CollectionID)

	assert.Contains(t, buf.String(), "2 downloaded, 0 skipped, 0 failed (total: 2)")
}

func TestAcquireBatch_SkipExisting(t *testing.T) {
	withReadPDF(t, func(path string) (pdfmeta.Info, error) { return pdfmeta.Info{Pages: 1}, nil })
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "raw"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw", "A1.pdf"), []byte("old"), 0o644))

	src := library()
	var buf bytes.Buffer
	result, err := AcquireBatch(context.Background(), src, "P", types.AcquisitionConfig{PapersDir: dir}, &buf)
	require.NoError(t, err)

	if result.Skipped != 1 || result.Downloaded != 1 {
		t.Errorf("skipped=%d downloaded=%d, want 1 and 1", result.Skipped, result.Downloaded)
	}
	assert.Equal(t, []string{"A3"}, src.downloads)
	assert.Contains(t, buf.String(), "skipped: A1 (already exists)")

	data, _ := os.ReadFile(filepath.Join(dir, "raw", "A1.pdf"))
	assert.Equal(t, "old", string(data), "existing file untouched")
}

func TestAcquireBatch_ContinuesAfterFailure(t *testing.T) {
	withReadPDF(t, func(string) (pdfmeta.Info, error) { return pdfmeta.Info{}, nil })
	dir := t.TempDir()
	src := library()
	src.failing = map[string]bool{"A1": true}
	var buf bytes.Buffer

	result, err := AcquireBatch(context.Background(), src, "P", types.AcquisitionConfig{PapersDir: dir}, &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Downloaded)
	assert.True(t, result.HasFailures())
	assert.Contains(t, buf.String(), "failed:  A1")

	_, err = os.Stat(filepath.Join(dir, "raw", "A1.pdf"))
	assert.True(t, os.IsNotExist(err), "no partial PDF left behind")

	entries, err := os.ReadDir(filepath.Join(dir, "raw"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestAcquireBatch_DuplicateListingDownloadedOnce(t *testing.T) {
	withReadPDF(t, func(string) (pdfmeta.Info, error) { return pdfmeta.Info{}, nil })
	src := &fakeSource{
		items: []types.Item{pdfAttachment("A1", "", "P"), pdfAttachment("A1", "", "C")},
		files: map[string]string{"A1": "%PDF"},
	}
	result, err := AcquireBatch(context.Background(), src, "P", types.AcquisitionConfig{PapersDir: t.TempDir()}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total())
	assert.Equal(t, []string{"A1"}, src.downloads)
}

func TestAcquireBatch_ListError(t *testing.T) {
	src := &fakeSource{listErr: errors.New("HTTP 403")}
	_, err := AcquireBatch(context.Background(), src, "P", types.AcquisitionConfig{PapersDir: t.TempDir()}, io.Discard)
	assert.ErrorContains(t, err, "HTTP 403")
}

func TestAcquirePaper_UnreadablePDFStillRecorded(t *testing.T) {
	withReadPDF(t, func(string) (pdfmeta.Info, error) { return pdfmeta.Info{}, errors.New("not a PDF") })
	dir := t.TempDir()
	src := &fakeSource{files: map[string]string{"A9": "<html>"}}
	var buf bytes.Buffer

	p, skipped, err := AcquirePaper(context.Background(), src, pdfAttachment("A9", "", "P"), nil,
		types.AcquisitionConfig{PapersDir: dir}, &buf)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Zero(t, p.Pages)
	assert.Contains(t, buf.String(), "warning: reading PDF metadata failed")

	_, err = os.Stat(filepath.Join(dir, "metadata", "A9.yaml"))
	assert.NoError(t, err)
}

func TestWriteAndReadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	paper := &types.Paper{
		ID:       "A1",
		ParentID: "I1",
		PDFPath:  "/papers/raw/A1.pdf",
		Title:    "Test Paper",
		Authors:  []string{"Alice", "Bob"},
		Pages:    7,
	}

	if err := writeMetadata(paper, path); err != nil {
		t.Fatalf("writeMetadata: %v", err)
	}
	got, err := readMetadata(path)
	if err != nil {
		t.Fatalf("readMetadata: %v", err)
	}
	assert.Equal(t, paper, got)
}
