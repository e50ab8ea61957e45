// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bufio"
	"fmt"
	"os"
)

// LinkLog accumulates harvested links in order. A link equal to the one
// accepted just before it is taken as a capture error (the pointer most
// likely did not reach a new result) and is dropped, unless it is the
// placeholder that stands for "no real link".
type LinkLog struct {
	placeholder string
	links       []string
	dropped     int
}

// NewLinkLog returns an empty log with the given placeholder value.
func NewLinkLog(placeholder string) *LinkLog {
	return &LinkLog{placeholder: placeholder}
}

// Offer appends link unless it repeats the previous link. It reports
// whether the link was accepted.
func (l *LinkLog) Offer(link string) bool {
	if l.IsDuplicate(link) {
		l.dropped++
		return false
	}
	l.links = append(l.links, link)
	return true
}

// IsDuplicate reports whether Offer would drop link.
func (l *LinkLog) IsDuplicate(link string) bool {
	if len(l.links) == 0 || link == l.placeholder {
		return false
	}
	return l.links[len(l.links)-1] == link
}

// Links returns the accepted links in harvest order.
func (l *LinkLog) Links() []string {
	out := make([]string, len(l.links))
	copy(out, l.links)
	return out
}

// Len returns the number of accepted links.
func (l *LinkLog) Len() int { return len(l.links) }

// Dropped returns the number of rejected duplicates.
func (l *LinkLog) Dropped() int { return l.dropped }

// WriteLinks writes one link per line to path, replacing any existing file.
func WriteLinks(path string, links []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, l := range links {
		if _, err := fmt.Fprintln(w, l); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
