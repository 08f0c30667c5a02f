// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Links(t *testing.T) {
	b := singlePage("BT /F1 12 Tf 72 700 Td (Visit our site) Tj ET", helveticaFont)
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R "+
		"/Annots [6 0 R 7 0 R] >>")
	b.obj(6, "<< /Subtype /Link /Rect [70 690 200 710] /A << /S /URI /URI (https://example.com/a) >> >>")
	b.obj(7, "<< /Subtype /Square /Rect [0 0 10 10] >>") // not a link

	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	links := doc.Page(1).Links()
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/a", links[0].URI)
	assert.Equal(t, 70.0, links[0].X1)
	assert.Equal(t, 710.0, links[0].Y2)
}

func TestPage_LinkAttachesToSpans(t *testing.T) {
	b := singlePage("BT /F1 12 Tf 72 700 Td (Visit our site) Tj ET", helveticaFont)
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R "+
		"/Annots [6 0 R] >>")
	b.obj(6, "<< /Subtype /Link /Rect [0 690 600 710] /A << /S /URI /URI (https://example.com) >> >>")

	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	lines := doc.Page(1).Lines()
	require.NotEmpty(t, lines)
	require.NotEmpty(t, lines[0].Spans)
	assert.Equal(t, "https://example.com", lines[0].Spans[0].Link)

	md := doc.Page(1).Markdown()
	assert.Contains(t, md, "](https://example.com)")
}

func TestLinkAt_NormalizedRect(t *testing.T) {
	links := []Link{{URI: "u", X1: 10, Y1: 10, X2: 20, Y2: 20}}
	assert.Equal(t, "u", linkAt(links, 15, 15))
	assert.Equal(t, "", linkAt(links, 25, 15))
}

func TestLatin1String(t *testing.T) {
	assert.Equal(t, "naïve", latin1String("na\xefve"))
}
