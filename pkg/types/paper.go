// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Verdict values produced by abstract screening.
const (
	VerdictYes   = "Yes"
	VerdictNo    = "No"
	VerdictError = "Error"
)

// Classification is the screening outcome for one abstract. IsAgtech is
// "Yes", "No", or "Error" when the response could not be processed; in the
// error case Reason carries the raw response for offline debugging.
type Classification struct {
	IsAgtech string `json:"is_agtech" yaml:"is_agtech" csv:"is_agtech"`
	Sentence string `json:"sentence" yaml:"sentence" csv:"agtech_sentence"`
	Reason   string `json:"reason" yaml:"reason" csv:"agtech_reason"`
}

// ErrorClassification returns the sentinel record for a failed item.
func ErrorClassification(raw string) Classification {
	return Classification{IsAgtech: VerdictError, Sentence: "", Reason: raw}
}

// Failed reports whether the classification is the error sentinel.
func (c Classification) Failed() bool {
	return c.IsAgtech == VerdictError
}

// Authors is a list of author names that flattens to a single
// "; "-delimited CSV column.
type Authors []string

// MarshalCSV joins the names for a single CSV cell.
func (a Authors) MarshalCSV() (string, error) {
	return strings.Join(a, "; "), nil
}

// UnmarshalCSV splits a cell on ";" and trims each name.
func (a *Authors) UnmarshalCSV(s string) error {
	*a = nil
	for _, part := range strings.Split(s, ";") {
		if name := strings.TrimSpace(part); name != "" {
			*a = append(*a, name)
		}
	}
	return nil
}

// Record is one row of a bibliographic database export (Web of Science
// column set) together with its screening outcome.
type Record struct {
	PublicationType string  `json:"publication_type" yaml:"publication_type" csv:"Publication Type"`
	DocumentType    string  `json:"document_type" yaml:"document_type" csv:"Document Type"`
	Authors         Authors `json:"authors" yaml:"authors" csv:"Authors"`
	Title           string  `json:"title" yaml:"title" csv:"Article Title"`
	SourceTitle     string  `json:"source_title" yaml:"source_title" csv:"Source Title"`
	ConferenceTitle string  `json:"conference_title" yaml:"conference_title" csv:"Conference Title"`
	DOI             string  `json:"doi" yaml:"doi" csv:"DOI"`
	Year            string  `json:"year" yaml:"year" csv:"Publication Year"`
	Date            string  `json:"date" yaml:"date" csv:"Publication Date"`
	Abstract        string  `json:"abstract" yaml:"abstract" csv:"Abstract"`

	Classification `yaml:",inline"`
}

// Paper holds metadata and file paths for a downloaded attachment.
type Paper struct {
	// ID is the Zotero attachment key.
	ID string `json:"id" yaml:"id"`

	// ParentID is the key of the bibliographic item the attachment belongs to.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// CollectionID is the collection the attachment was found in.
	CollectionID string `json:"collection_id" yaml:"collection_id"`

	// PDFPath is the local filesystem path to the downloaded PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// Title is the parent item's title, or the PDF's own title when the item has none.
	Title string `json:"title" yaml:"title"`

	// Authors lists the parent item's creators, or the PDF author field when there is no parent.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Pages is the page count read from the PDF.
	Pages int `json:"pages" yaml:"pages"`

	// Producer is the PDF producer string, useful to spot scanned documents.
	Producer string `json:"producer,omitempty" yaml:"producer,omitempty"`
}
