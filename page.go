// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barryking/extractly/logger"
)

// A Page is a handle into its owning Document. After Document.Close the
// handle is severed: every accessor returns empty output instead of
// touching freed state.
type Page struct {
	doc *Document
	v   Value

	extracted bool
	items     []TextItem
	err       error
}

// Items returns the page's positioned text runs in emission order. An
// extraction failure is recorded on the page and yields an empty slice;
// it never aborts the document.
func (p *Page) Items() []TextItem {
	if p == nil || p.doc == nil {
		return nil
	}
	if !p.extracted {
		p.extract()
	}
	return p.items
}

func (p *Page) extract() {
	p.extracted = true
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("page: extraction panic: %v", r))
			p.items = nil
			p.err = errors.New(fmt.Sprint(r))
		}
	}()
	p.items = p.extractItems()
}

// Err reports the extraction error recorded for this page, if any.
func (p *Page) Err() error {
	return p.err
}

// Text returns the page's plain text in reading order.
func (p *Page) Text() string {
	if p == nil || p.doc == nil {
		return ""
	}
	a := assemble(p.Items(), p.doc.opts, nil)
	return a.text
}

// Lines returns the page's structured line model: styled spans with the
// dominant font size, baseline y, and paragraph-break flags.
func (p *Page) Lines() []Line {
	if p == nil || p.doc == nil {
		return nil
	}
	a := assemble(p.Items(), p.doc.opts, p.Links())
	return a.lines
}

// Tables returns the aligned-row table blocks detected on the page.
func (p *Page) Tables() []Table {
	if p == nil || p.doc == nil {
		return nil
	}
	return detectTables(p.Items())
}

// Markdown renders the page as GitHub-flavored Markdown.
func (p *Page) Markdown() string {
	if p == nil || p.doc == nil {
		return ""
	}
	return renderMarkdown(p.Lines(), p.Tables())
}

// Text returns the whole document's plain text: pages joined with the
// configured separator, skipping pages that are empty or failed.
func (d *Document) Text() string {
	if d.closed {
		return ""
	}
	var parts []string
	for _, p := range d.pages {
		t := p.Text()
		if p.Err() != nil {
			logger.Debug(fmt.Sprintf("document: skipping failed page: %v", p.Err()))
			continue
		}
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, d.opts.PageSeparator)
}

// Markdown renders the whole document, pages joined by blank lines.
func (d *Document) Markdown() string {
	if d.closed {
		return ""
	}
	var parts []string
	for _, p := range d.pages {
		md := p.Markdown()
		if p.Err() != nil || md == "" {
			continue
		}
		parts = append(parts, md)
	}
	return strings.Join(parts, "\n\n")
}
