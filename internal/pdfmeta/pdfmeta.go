// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfmeta reads the document information dictionary, page count
// and page text of PDF files.
package pdfmeta

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Info is the metadata of one PDF.
type Info struct {
	Path     string `json:"path" yaml:"path"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Subject  string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Creator  string `json:"creator,omitempty" yaml:"creator,omitempty"`
	Producer string `json:"producer,omitempty" yaml:"producer,omitempty"`
	Pages    int    `json:"pages" yaml:"pages"`
}

// Authors splits the author field on ";", or on "," when no ";" is present.
func (i Info) Authors() []string {
	sep := ","
	if strings.Contains(i.Author, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(i.Author, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// document is the part of *fitz.Document that Read uses.
type document interface {
	NumPage() int
	Metadata() map[string]string
	Text(pageNumber int) (string, error)
	Close() error
}

// open is replaced in tests.
var open = func(path string) (document, error) {
	return fitz.New(path)
}

// Read opens the PDF at path and returns its metadata.
func Read(path string) (Info, error) {
	doc, err := open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer doc.Close()

	md := doc.Metadata()
	return Info{
		Path:     path,
		Title:    strings.TrimSpace(md["title"]),
		Author:   strings.TrimSpace(md["author"]),
		Subject:  strings.TrimSpace(md["subject"]),
		Keywords: strings.TrimSpace(md["keywords"]),
		Creator:  strings.TrimSpace(md["creator"]),
		Producer: strings.TrimSpace(md["producer"]),
		Pages:    doc.NumPage(),
	}, nil
}

// Text returns the plain text of every page, in page order.
func Text(path string) ([]string, error) {
	doc, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer doc.Close()

	pages := make([]string, doc.NumPage())
	for i := range pages {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extracting text of %s page %d: %w", path, i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}
