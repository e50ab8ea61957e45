// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/pdiddy/litharvest/pkg/types"
)

// Collections returns the collection identified by key followed by all of
// its nested sub-collections, depth-first.
func (c *Client) Collections(ctx context.Context, key string) ([]types.Collection, error) {
	var root apiCollection
	if _, err := c.getJSON(ctx, "/collections/"+url.PathEscape(key), nil, &root); err != nil {
		return nil, fmt.Errorf("fetching collection %s: %w", key, err)
	}
	out := []types.Collection{root.toCollection()}
	if err := c.descend(ctx, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) descend(ctx context.Context, key string, out *[]types.Collection) error {
	children, err := getAll[apiCollection](ctx, c, "/collections/"+url.PathEscape(key)+"/collections")
	if err != nil {
		return fmt.Errorf("listing sub-collections of %s: %w", key, err)
	}
	for _, child := range children {
		*out = append(*out, child.toCollection())
		if err := c.descend(ctx, child.Key, out); err != nil {
			return err
		}
	}
	return nil
}

// CollectionItems returns every item filed directly in the collection,
// including attachments and notes.
func (c *Client) CollectionItems(ctx context.Context, key string) ([]types.Item, error) {
	raw, err := getAll[apiItem](ctx, c, "/collections/"+url.PathEscape(key)+"/items")
	if err != nil {
		return nil, fmt.Errorf("listing items of %s: %w", key, err)
	}
	items := make([]types.Item, len(raw))
	for i, r := range raw {
		items[i] = r.toItem(key)
	}
	return items, nil
}

// AllItems returns the items of the collection and of every descendant,
// each tagged with the collection it was listed in.
func (c *Client) AllItems(ctx context.Context, key string) ([]types.Collection, []types.Item, error) {
	cols, err := c.Collections(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	var items []types.Item
	for _, col := range cols {
		got, err := c.CollectionItems(ctx, col.ID)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, got...)
	}
	return cols, items, nil
}

// Item returns a single item by key. Its CollectionID is left empty.
func (c *Client) Item(ctx context.Context, key string) (types.Item, error) {
	var r apiItem
	if _, err := c.getJSON(ctx, "/items/"+url.PathEscape(key), nil, &r); err != nil {
		return types.Item{}, fmt.Errorf("fetching item %s: %w", key, err)
	}
	return r.toItem(""), nil
}

// Download streams the stored file of an attachment item into w and
// returns the number of bytes written.
func (c *Client) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, "/items/"+url.PathEscape(key)+"/file", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading attachment %s: %w", key, err)
	}
	return n, nil
}

// Zotero API JSON structures.

type apiCollection struct {
	Key  string `json:"key"`
	Data struct {
		Key              string    `json:"key"`
		Name             string    `json:"name"`
		ParentCollection parentKey `json:"parentCollection"`
	} `json:"data"`
}

func (a apiCollection) toCollection() types.Collection {
	key := a.Data.Key
	if key == "" {
		key = a.Key
	}
	return types.Collection{ID: key, Name: a.Data.Name, Parent: string(a.Data.ParentCollection)}
}

// parentKey is a collection key that the API encodes as false at the top level.
type parentKey string

func (p *parentKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("parentCollection: %w", err)
	}
	*p = parentKey(s)
	return nil
}

type apiCreator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Name        string `json:"name"`
}

type apiItem struct {
	Key  string `json:"key"`
	Data struct {
		Key          string       `json:"key"`
		ItemType     string       `json:"itemType"`
		Title        string       `json:"title"`
		Creators     []apiCreator `json:"creators"`
		Date         string       `json:"date"`
		DOI          string       `json:"DOI"`
		URL          string       `json:"url"`
		AbstractNote string       `json:"abstractNote"`
		ParentItem   string       `json:"parentItem"`
		ContentType  string       `json:"contentType"`
		Filename     string       `json:"filename"`
		LinkMode     string       `json:"linkMode"`
	} `json:"data"`
}

func (a apiItem) toItem(collectionID string) types.Item {
	d := a.Data
	key := d.Key
	if key == "" {
		key = a.Key
	}
	it := types.Item{
		ID:           key,
		CollectionID: collectionID,
		ItemType:     d.ItemType,
		Title:        d.Title,
		Date:         d.Date,
		DOI:          d.DOI,
		URL:          d.URL,
		Abstract:     d.AbstractNote,
		ParentItem:   d.ParentItem,
	}
	for _, cr := range d.Creators {
		it.Creators = append(it.Creators, types.Creator(cr))
	}
	if d.ItemType == "attachment" {
		it.Attachment = &types.Attachment{
			ContentType: d.ContentType,
			Filename:    d.Filename,
			LinkMode:    d.LinkMode,
			URL:         d.URL,
		}
	}
	return it
}
