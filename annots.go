// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import "strings"

// A Link is a URI annotation with its normalized rectangle.
type Link struct {
	URI            string
	X1, Y1, X2, Y2 float64
}

// Links walks the page's /Annots array and extracts /Subtype /Link
// annotations whose action is /S /URI.
func (p *Page) Links() []Link {
	if p.doc == nil || p.v.IsNull() {
		return nil
	}
	annots := p.v.Key("Annots")
	if annots.Kind() != Array {
		return nil
	}
	var links []Link
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Key("Subtype").Name() != "Link" {
			continue
		}
		action := a.Key("A")
		if action.Key("S").Name() != "URI" {
			continue
		}
		uri := latin1String(action.Key("URI").RawString())
		if uri == "" {
			continue
		}
		rect := a.Key("Rect")
		if rect.Kind() != Array || rect.Len() != 4 {
			continue
		}
		x1, y1 := rect.Index(0).Float64(), rect.Index(1).Float64()
		x2, y2 := rect.Index(2).Float64(), rect.Index(3).Float64()
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		if y1 > y2 {
			y1, y2 = y2, y1
		}
		links = append(links, Link{URI: uri, X1: x1, Y1: y1, X2: x2, Y2: y2})
	}
	return links
}

// latin1String reads raw bytes as Latin-1 code points.
func latin1String(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		sb.WriteRune(rune(s[i]))
	}
	return sb.String()
}

// linkAt returns the URI of the first link rectangle containing the
// point, or "".
func linkAt(links []Link, x, y float64) string {
	for _, l := range links {
		if x >= l.X1 && x <= l.X2 && y >= l.Y1 && y <= l.Y2 {
			return l.URI
		}
	}
	return ""
}
