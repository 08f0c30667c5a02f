// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"github.com/barryking/extractly/logger"
)

// Meta is the unified metadata model (/Info + XMP fields). /Info takes
// priority; the XMP packet fills the gaps.
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
	PageCount    int    `json:"pageCount"`
}

// Minimal XML models to pull common XMP fields in a namespace
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	// dc:title / dc:description (rdf:Alt)
	Title       altString `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description altString `xml:"http://purl.org/dc/elements/1.1/ description"`

	// dc:creator (rdf:Seq)
	Creator seqString `xml:"http://purl.org/dc/elements/1.1/ creator"`

	// pdf namespace
	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	PDFKeywords string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords"`

	// xmp namespace
	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`

	// the same simple properties written as attributes of rdf:Description
	PDFProducerAttr    string `xml:"http://ns.adobe.com/pdf/1.3/ Producer,attr"`
	PDFKeywordsAttr    string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords,attr"`
	XMPCreatorToolAttr string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool,attr"`
	XMPCreateDateAttr  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate,attr"`
	XMPModifyDateAttr  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate,attr"`
}

type altString struct {
	Alt struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
}

func (a altString) First() string {
	if len(a.Alt.LI) > 0 {
		return strings.TrimSpace(a.Alt.LI[0])
	}
	return ""
}

type seqString struct {
	Seq struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq"`
}

func (s seqString) First() string {
	if len(s.Seq.LI) > 0 {
		return strings.TrimSpace(s.Seq.LI[0])
	}
	return ""
}

// Metadata reads /Info, merges the catalog's XMP packet underneath it,
// and stamps the page count.
func (d *Document) Metadata() Meta {
	var m Meta
	if d.closed {
		return m
	}
	m.PageCount = len(d.pages)

	info := d.Trailer().Key("Info")
	if info.Kind() == Dict {
		m.Title = info.Key("Title").Text()
		m.Author = info.Key("Author").Text()
		m.Subject = info.Key("Subject").Text()
		m.Keywords = info.Key("Keywords").Text()
		m.Creator = info.Key("Creator").Text()
		m.Producer = info.Key("Producer").Text()
		m.CreationDate = info.Key("CreationDate").Text()
		m.ModDate = info.Key("ModDate").Text()
	}

	d.mergeXMP(&m)
	return m
}

// mergeXMP fills empty Meta fields from the catalog /Metadata stream.
func (d *Document) mergeXMP(m *Meta) {
	md := d.Catalog().Key("Metadata")
	if md.Kind() != Stream {
		return
	}
	data := md.Stream()
	if len(data) == 0 {
		return
	}
	// strip the xpacket processing wrapper if present
	if i := strings.Index(string(data), "<x:xmpmeta"); i >= 0 {
		data = data[i:]
		if j := strings.Index(string(data), "</x:xmpmeta>"); j >= 0 {
			data = data[:j+len("</x:xmpmeta>")]
		}
	}

	var pkt xmpPacket
	if err := xml.Unmarshal(data, &pkt); err != nil {
		logger.Debug("metadata: XMP packet unreadable, keeping /Info only")
		return
	}
	setIfEmpty := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	for _, desc := range pkt.RDF.Descriptions {
		setIfEmpty(&m.Title, desc.Title.First())
		setIfEmpty(&m.Subject, desc.Description.First())
		setIfEmpty(&m.Author, desc.Creator.First())
		setIfEmpty(&m.Producer, desc.PDFProducer)
		setIfEmpty(&m.Keywords, desc.PDFKeywords)
		setIfEmpty(&m.Creator, desc.XMPCreatorTool)
		setIfEmpty(&m.CreationDate, desc.XMPCreateDate)
		setIfEmpty(&m.ModDate, desc.XMPModifyDate)
		setIfEmpty(&m.Producer, desc.PDFProducerAttr)
		setIfEmpty(&m.Keywords, desc.PDFKeywordsAttr)
		setIfEmpty(&m.Creator, desc.XMPCreatorToolAttr)
		setIfEmpty(&m.CreationDate, desc.XMPCreateDateAttr)
		setIfEmpty(&m.ModDate, desc.XMPModifyDateAttr)
	}
}

// MetadataJSON writes the document metadata as JSON to w.
func (d *Document) MetadataJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Metadata())
}
