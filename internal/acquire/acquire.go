// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads the PDF attachments of a collection tree and
// writes a metadata record for each.
package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litharvest/internal/pdfmeta"
	"github.com/pdiddy/litharvest/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// Source lists a collection tree and streams attachment files.
// *zotero.Client implements it.
type Source interface {
	AllItems(ctx context.Context, key string) ([]types.Collection, []types.Item, error)
	Download(ctx context.Context, key string, w io.Writer) (int64, error)
}

// readPDF is replaced in tests.
var readPDF = pdfmeta.Read

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Papers     []*types.Paper
}

// Total returns the total number of attachments processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any attachment failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AcquirePaper downloads one PDF attachment to raw/<key>.pdf and writes
// metadata/<key>.yaml. parent may be nil for standalone attachments. If the
// PDF already exists on disk the download is skipped.
func AcquirePaper(ctx context.Context, src Source, att types.Item, parent *types.Item, cfg types.AcquisitionConfig, w io.Writer) (paper *types.Paper, skipped bool, err error) {
	pdfPath := filepath.Join(cfg.PapersDir, rawDir, att.ID+".pdf")
	metaPath := filepath.Join(cfg.PapersDir, metadataDir, att.ID+".yaml")

	if _, err := os.Stat(pdfPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", att.ID)
		p, readErr := readMetadata(metaPath)
		if readErr != nil {
			p = &types.Paper{ID: att.ID, ParentID: att.ParentItem, CollectionID: att.CollectionID, PDFPath: pdfPath}
		}
		return p, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.PapersDir, rawDir),
		filepath.Join(cfg.PapersDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "downloading: %s\n", att.ID)
	if err := downloadFile(ctx, src, att.ID, pdfPath); err != nil {
		return nil, false, fmt.Errorf("downloading %s: %w", att.ID, err)
	}

	p := &types.Paper{
		ID:           att.ID,
		ParentID:     att.ParentItem,
		CollectionID: att.CollectionID,
		PDFPath:      pdfPath,
	}
	if parent != nil {
		p.Title = parent.Title
		p.Authors = parent.AuthorNames()
	}

	info, err := readPDF(pdfPath)
	if err != nil {
		fmt.Fprintf(w, "  warning: reading PDF metadata failed: %v\n", err)
	} else {
		p.Pages = info.Pages
		p.Producer = info.Producer
		if p.Title == "" {
			p.Title = info.Title
		}
		if len(p.Authors) == 0 {
			p.Authors = info.Authors()
		}
	}

	if err := writeMetadata(p, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing metadata for %s: %w", att.ID, err)
	}
	return p, false, nil
}

// AcquireBatch downloads every PDF attachment in the collection tree rooted
// at collectionKey. It continues after individual failures and applies
// cfg.DownloadDelay between consecutive downloads. Only listing the tree
// can fail the whole batch.
func AcquireBatch(ctx context.Context, src Source, collectionKey string, cfg types.AcquisitionConfig, w io.Writer) (BatchResult, error) {
	_, items, err := src.AllItems(ctx, collectionKey)
	if err != nil {
		return BatchResult{}, err
	}

	byID := make(map[string]*types.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	var result BatchResult
	seen := make(map[string]bool)
	for _, it := range items {
		if !it.IsAttachment() || it.Attachment == nil || !it.Attachment.IsPDF() || seen[it.ID] {
			continue
		}
		// An attachment filed in two collections of the tree is listed twice.
		seen[it.ID] = true

		if result.Total() > 0 && cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(cfg.DownloadDelay):
			}
		}

		paper, wasSkipped, err := AcquirePaper(ctx, src, it, byID[it.ParentItem], cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", it.ID, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Papers = append(result.Papers, paper)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// downloadFile streams an attachment to destPath through a temporary file
// so a failed transfer never leaves a partial PDF.
func downloadFile(ctx context.Context, src Source, key, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := src.Download(ctx, key, tmpFile)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// writeMetadata writes a Paper record to a YAML file.
func writeMetadata(paper *types.Paper, path string) error {
	data, err := yaml.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// readMetadata reads a Paper record from a YAML file.
func readMetadata(path string) (*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var paper types.Paper
	if err := yaml.Unmarshal(data, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}
