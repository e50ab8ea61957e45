// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Collection is a node of the reference manager's collection tree.
type Collection struct {
	// ID is the collection key (e.g. "INADL5PC").
	ID string `json:"id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// Parent is the parent collection key, empty for a top-level collection.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Creator is an item author or editor. The reference manager stores either
// split FirstName/LastName parts or a single Name (institutional authors).
type Creator struct {
	CreatorType string `json:"creator_type" yaml:"creator_type"`
	FirstName   string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
}

// DisplayName returns "First Last" when split parts exist, otherwise Name.
func (c Creator) DisplayName() string {
	if c.FirstName != "" || c.LastName != "" {
		return strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return strings.TrimSpace(c.Name)
}

// Attachment is the raw file metadata of an attachment item.
type Attachment struct {
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
	LinkMode    string `json:"link_mode,omitempty" yaml:"link_mode,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// IsPDF reports whether the attachment is a stored or linked PDF file.
func (a Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}

// Item is a bibliographic record (or attachment/note) from the reference
// manager, tagged with the collection it was fetched from.
type Item struct {
	ID           string      `json:"id" yaml:"id"`
	CollectionID string      `json:"collection_id" yaml:"collection_id"`
	ItemType     string      `json:"item_type" yaml:"item_type"`
	Title        string      `json:"title" yaml:"title"`
	Creators     []Creator   `json:"creators,omitempty" yaml:"creators,omitempty"`
	Date         string      `json:"date,omitempty" yaml:"date,omitempty"`
	DOI          string      `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL          string      `json:"url,omitempty" yaml:"url,omitempty"`
	Abstract     string      `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	ParentItem   string      `json:"parent_item,omitempty" yaml:"parent_item,omitempty"`
	Attachment   *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

// AuthorNames returns the display names of the item's creators in order.
func (it Item) AuthorNames() Authors {
	names := make(Authors, 0, len(it.Creators))
	for _, c := range it.Creators {
		if n := c.DisplayName(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// IsAttachment reports whether the item is a file attachment.
func (it Item) IsAttachment() bool {
	return it.ItemType == "attachment"
}
