// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_XMPFillsGaps(t *testing.T) {
	xmp := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:pdf="http://ns.adobe.com/pdf/1.3/"
    xmlns:xmp="http://ns.adobe.com/xap/1.0/"
    pdf:Producer="xmp-producer" xmp:CreatorTool="xmp-creator">
   <dc:title><rdf:Alt><rdf:li>XMP Title</rdf:li></rdf:Alt></dc:title>
   <dc:creator><rdf:Seq><rdf:li>XMP Author</rdf:li></rdf:Seq></dc:creator>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

	b := singlePage("BT /F1 12 Tf 72 720 Td (x) Tj ET", helveticaFont)
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Metadata 7 0 R >>")
	b.streamObj(7, "/Type /Metadata /Subtype /XML", []byte(xmp))
	b.obj(6, "<< /Title (Info Title) >>")
	b.extra = "/Info 6 0 R"

	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	m := doc.Metadata()
	// /Info wins where present, XMP fills the rest
	assert.Equal(t, "Info Title", m.Title)
	assert.Equal(t, "XMP Author", m.Author)
	assert.Equal(t, "xmp-producer", m.Producer)
	assert.Equal(t, "xmp-creator", m.Creator)
}

func TestMetadataJSON(t *testing.T) {
	b := singlePage("BT /F1 12 Tf 72 720 Td (x) Tj ET", helveticaFont)
	b.obj(6, "<< /Title (JSON Title) >>")
	b.extra = "/Info 6 0 R"

	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	var buf bytes.Buffer
	require.NoError(t, doc.MetadataJSON(&buf))

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "JSON Title", m["title"])
	assert.Equal(t, float64(1), m["pageCount"])
}

func TestMetadata_AfterClose(t *testing.T) {
	b := singlePage("BT /F1 12 Tf 72 720 Td (x) Tj ET", helveticaFont)
	doc, err := mustLoad(b.bytes())
	require.NoError(t, err)
	doc.Close()

	assert.Equal(t, Meta{}, doc.Metadata())
}
