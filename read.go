// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package extractly implements reading of PDF files and reconstruction of
// their text for retrieval pipelines.
//
// # Overview
//
// A PDF document is a complex data format built on a fairly simple
// structure. This package exposes the simple structure along with wrappers
// that reconstruct per-page text, structured lines, and Markdown. The
// object graph is exposed as Values, each of which has one of the kinds
// Null, Bool, Integer, Real, String, Name, Dict, Array, or Stream.
//
// The accessors on Value—Int64, Float64, Bool, Name, and so on—return a
// view of the data as the given type. When there is no appropriate view,
// the accessor returns a zero result, which makes it possible to traverse
// a PDF quickly without writing any error checking.
//
// A Document owns its byte buffer, cross-reference table, and object
// cache. Pages are handles into the owning Document; Close severs them so
// that a page outliving its document reads as empty rather than crashing.
package extractly

import (
	"bytes"
	"fmt"
	"os"

	"github.com/barryking/extractly/logger"
)

const (
	maxResolveDepth = 100 // indirect-reference resolution cap
	maxFormDepth    = 10  // Form-XObject recursion cap
)

// A Document is a single PDF file open for reading.
type Document struct {
	buf     []byte
	xref    map[uint32]xrefEntry
	trailer dict
	opts    LoadOptions
	prims   Primitives
	crypt   *cryptState
	cache   map[objptr]object
	pages   []*Page
	depth   int
	closed  bool
}

// An xrefEntry locates one object: either a byte offset into the buffer,
// or a position inside a compressed object stream. offset < 0 marks a
// free entry.
type xrefEntry struct {
	offset   int64
	gen      uint16
	inStream bool
	stream   uint32 // containing ObjStm object number
	idx      int    // zero-based index within it
}

// Open reads the named file into memory and loads it.
// It is a convenience wrapper; the core operates on resident byte slices.
func Open(path string, opts *LoadOptions) (*Document, error) {
	logger.Debug(fmt.Sprintf("document: opening file %s", path), true)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, opts)
}

// Load parses the PDF contained in data and returns a Document.
// The returned Document keeps a reference to data; callers must not
// mutate it while the Document is in use.
func Load(data []byte, opts *LoadOptions) (*Document, error) {
	o := normalizeOptions(opts)
	d := &Document{
		buf:   data,
		xref:  make(map[uint32]xrefEntry),
		opts:  o,
		prims: o.Primitives,
		cache: make(map[objptr]object),
	}

	checkHeader(data)

	if err := d.parse(); err != nil {
		return nil, err
	}
	d.collectPages()
	logger.Debug(fmt.Sprintf("document: loaded, %d pages", len(d.pages)), true)
	return d, nil
}

// checkHeader looks for %PDF-x.y within the leading bytes. The header is
// advisory: the cross-reference position is what matters, so a missing or
// odd header is logged, never fatal.
func checkHeader(data []byte) {
	limit := 1024
	if len(data) < limit {
		limit = len(data)
	}
	p := bytes.Index(data[:limit], []byte("%PDF-"))
	if p < 0 {
		logger.Debug("header: no %PDF- marker in the leading bytes")
		return
	}
	end := bytes.IndexAny(data[p:limit], "\r\n")
	if end < 0 {
		end = limit - p
	}
	logger.Debug(fmt.Sprintf("header: %s", bytes.TrimRight(data[p:p+end], " \t\x00")), true)
}

// parse bootstraps the cross-reference structure: the rightmost startxref
// is followed first; any failure clears state and falls back to a full
// object scan. /Root is required either way.
func (d *Document) parse() error {
	if err := d.parseFromStartxref(); err != nil {
		logger.Debug(fmt.Sprintf("xref: bootstrap failed (%v), scanning for objects", err), true)
		d.xref = make(map[uint32]xrefEntry)
		d.trailer = nil
		d.cache = make(map[objptr]object)
		if err := d.scanForObjects(); err != nil {
			return err
		}
	}

	if d.trailer == nil || d.trailer["Root"] == nil {
		return &ParseError{Message: "trailer missing /Root", Offset: -1}
	}

	if enc := d.trailer["Encrypt"]; enc != nil {
		if err := d.setupEncryption(enc); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) parseFromStartxref() error {
	i := findLast(d.buf, "startxref")
	if i < 0 {
		return &ParseError{Message: "missing startxref", Offset: -1}
	}
	b := newBuffer(d.buf, 0)
	b.seek(i)
	if tok := b.readToken(); tok != keyword("startxref") {
		return parseErrorf(i, "startxref marker unreadable")
	}
	off, ok := b.readToken().(int64)
	if !ok {
		return parseErrorf(i, "startxref not followed by integer")
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", off), true)
	return d.parseXrefAt(off, make(map[int64]bool))
}

// parseXrefAt dispatches on the first token at offset: the keyword "xref"
// selects a classic table, an integer an xref stream. Entries merge
// first-wins; the trailer merges first-wins too, so the newest section
// takes priority. /Prev recurses, newest-first.
func (d *Document) parseXrefAt(offset int64, seen map[int64]bool) error {
	if offset < 0 || offset >= int64(len(d.buf)) {
		return parseErrorf(offset, "xref offset out of range")
	}
	if seen[offset] {
		return nil // /Prev cycle
	}
	seen[offset] = true

	b := newBuffer(d.buf, 0)
	b.seek(offset)
	tok := b.readToken()

	var trailer dict
	var err error
	switch t := tok.(type) {
	case keyword:
		if t != "xref" {
			return parseErrorf(offset, "expected xref keyword, found %v", t)
		}
		logger.Debug("xref: classic table", true)
		trailer, err = d.readXrefTable(b)
	case int64:
		b.unreadToken(tok)
		logger.Debug("xref: stream", true)
		trailer, err = d.readXrefStream(b)
	default:
		return parseErrorf(offset, "neither xref table nor xref stream at offset")
	}
	if err != nil {
		return err
	}

	d.mergeTrailer(trailer)

	if prev, ok := trailer["Prev"].(int64); ok {
		return d.parseXrefAt(prev, seen)
	}
	return nil
}

func (d *Document) mergeTrailer(t dict) {
	if d.trailer == nil {
		d.trailer = make(dict)
	}
	for k, v := range t {
		if _, ok := d.trailer[k]; !ok {
			d.trailer[k] = v
		}
	}
}

func (d *Document) setEntry(num uint32, e xrefEntry) {
	if _, ok := d.xref[num]; !ok {
		d.xref[num] = e
	}
}

// readXrefTable consumes a classic table: subsection headers "first count"
// followed by count fixed-width lines "offset(10) gen(5) type", type n or
// f, terminated by the trailer keyword and its dictionary.
func (d *Document) readXrefTable(b *buffer) (dict, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			return nil, parseErrorf(b.offset(), "malformed xref subsection header")
		}
		for i := int64(0); i < count; i++ {
			off, okOff := b.readToken().(int64)
			gen, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, parseErrorf(b.offset(), "malformed xref entry in subsection starting %d", start)
			}
			num := uint32(start + i)
			switch alloc {
			case "n":
				d.setEntry(num, xrefEntry{offset: off, gen: uint16(gen)})
			case "f":
				d.setEntry(num, xrefEntry{offset: -1})
			default:
				return nil, parseErrorf(b.offset(), "unexpected xref entry type %v", alloc)
			}
		}
	}
	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, parseErrorf(b.offset(), "xref table not followed by trailer dictionary")
	}
	logger.Debug(fmt.Sprintf("xref: table parsed, %d entries so far", len(d.xref)))

	// Hybrid-reference files put newer entries behind /XRefStm.
	if off, ok := trailer["XRefStm"].(int64); ok {
		sb := newBuffer(d.buf, 0)
		sb.seek(off)
		if _, err := d.readXrefStream(sb); err != nil {
			logger.Debug(fmt.Sprintf("xref: XRefStm at %d unreadable: %v", off, err))
		}
	}
	return trailer, nil
}

// readXrefStream parses a stream object whose dict carries /Type /XRef and
// walks its packed records: three big-endian integers of widths /W.
func (d *Document) readXrefStream(b *buffer) (dict, error) {
	obj := b.readObject()
	def, ok := obj.(objdef)
	if !ok {
		return nil, parseErrorf(b.offset(), "xref stream object definition not found")
	}
	strm, ok := def.obj.(stream)
	if !ok {
		return nil, parseErrorf(b.offset(), "xref stream is not a stream")
	}
	if typ, _ := strm.hdr["Type"].(name); typ != "XRef" {
		return nil, parseErrorf(strm.offset, "xref stream does not have /Type /XRef")
	}
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		return nil, parseErrorf(strm.offset, "xref stream missing /Size")
	}

	// The xref stream itself is never encrypted.
	data, err := d.streamDataRaw(strm, false)
	if err != nil {
		return nil, err
	}

	ww, ok := strm.hdr["W"].(array)
	if !ok || len(ww) < 3 {
		return nil, parseErrorf(strm.offset, "xref stream missing /W array")
	}
	var w [3]int
	wtotal := 0
	for i := 0; i < 3; i++ {
		x, ok := ww[i].(int64)
		if !ok || x < 0 || x > 8 {
			return nil, parseErrorf(strm.offset, "invalid /W array %v", objfmt(ww))
		}
		w[i] = int(x)
		wtotal += int(x)
	}

	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, parseErrorf(strm.offset, "invalid /Index array %v", objfmt(index))
	}

	pos := 0
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		count, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, parseErrorf(strm.offset, "malformed /Index pair")
		}
		index = index[2:]
		for i := int64(0); i < count; i++ {
			if pos+wtotal > len(data) {
				return nil, parseErrorf(strm.offset, "xref stream truncated")
			}
			typ := decodeBE(data[pos : pos+w[0]])
			if w[0] == 0 {
				typ = 1
			}
			f2 := decodeBE(data[pos+w[0] : pos+w[0]+w[1]])
			f3 := decodeBE(data[pos+w[0]+w[1] : pos+wtotal])
			pos += wtotal

			num := uint32(start + i)
			switch typ {
			case 0:
				d.setEntry(num, xrefEntry{offset: -1})
			case 1:
				d.setEntry(num, xrefEntry{offset: f2, gen: uint16(f3)})
			case 2:
				d.setEntry(num, xrefEntry{inStream: true, stream: uint32(f2), idx: int(f3)})
			default:
				logger.Debug(fmt.Sprintf("xref: ignoring record type %d for object %d", typ, num))
			}
		}
	}
	logger.Debug(fmt.Sprintf("xref: stream parsed, size=%d", size), true)
	return strm.hdr, nil
}

func decodeBE(b []byte) int64 {
	var x int64
	for _, c := range b {
		x = x<<8 | int64(c)
	}
	return x
}

// resolve follows x down to a direct object, consulting the cache and the
// cross-reference table. Resolution depth is capped; at the cap the result
// is null rather than a loop.
func (d *Document) resolve(parent objptr, x object) Value {
	if d == nil || d.closed {
		return Value{}
	}
	ptr, ok := x.(objptr)
	if !ok {
		return Value{d, parent, x}
	}

	if d.depth >= maxResolveDepth {
		return Value{}
	}
	d.depth++
	defer func() { d.depth-- }()

	if obj, ok := d.cache[ptr]; ok {
		return d.resolve(ptr, obj)
	}

	entry, ok := d.xref[ptr.id]
	if !ok || (!entry.inStream && entry.offset < 0) {
		return Value{}
	}

	var obj object
	if entry.inStream {
		obj = d.objStmObject(entry.stream, entry.idx, ptr)
	} else {
		def := d.parseObjectAt(entry.offset)
		if def == nil || def.ptr.id != ptr.id {
			return Value{}
		}
		obj = def.obj
	}
	d.cache[ptr] = obj
	return d.resolve(ptr, obj)
}

// parseObjectAt reads "num gen obj <value>" at a known byte offset.
// Strings are decrypted in place when encryption is active, because only
// uncompressed entries carry their own per-object key.
func (d *Document) parseObjectAt(offset int64) *objdef {
	if offset < 0 || offset >= int64(len(d.buf)) {
		return nil
	}
	b := newBuffer(d.buf, 0)
	b.seek(offset)
	b.crypt = d.crypt
	obj := b.readObject()
	def, ok := obj.(objdef)
	if !ok {
		logger.Debug(fmt.Sprintf("object: no definition at offset %d, found %T", offset, obj))
		return nil
	}
	return &def
}

// objStmObject extracts the idx'th object from the given object stream:
// the decoded payload opens with N pairs "objNum offset", then the bodies
// concatenated after /First. Inner objects are never themselves encrypted;
// the containing stream's payload was decrypted once.
func (d *Document) objStmObject(stmNum uint32, idx int, want objptr) object {
	entry, ok := d.xref[stmNum]
	if !ok || entry.inStream || entry.offset < 0 {
		return nil
	}
	def := d.parseObjectAt(entry.offset)
	if def == nil {
		return nil
	}
	strm, ok := def.obj.(stream)
	if !ok {
		return nil
	}
	if typ, _ := strm.hdr["Type"].(name); typ != "ObjStm" {
		return nil
	}
	n, _ := strm.hdr["N"].(int64)
	first, _ := strm.hdr["First"].(int64)
	if n <= 0 || first <= 0 {
		return nil
	}

	data, err := d.streamData(strm)
	if err != nil {
		logger.Debug(fmt.Sprintf("objstm %d: payload unreadable: %v", stmNum, err))
		return nil
	}

	b := newBuffer(data, 0)
	var off int64 = -1
	for i := int64(0); i < n; i++ {
		id, _ := b.readToken().(int64)
		o, _ := b.readToken().(int64)
		if int(i) == idx {
			if uint32(id) != want.id {
				logger.Debug(fmt.Sprintf("objstm %d: index %d holds object %d, wanted %d", stmNum, idx, id, want.id))
			}
			off = o
			break
		}
	}
	if off < 0 {
		return nil
	}
	b.seek(first + off)
	return b.readObject()
}

// streamData returns the fully decoded payload of strm: raw bytes sliced
// by /Length (or endstream fallback), decrypted, then filtered.
func (d *Document) streamData(strm stream) ([]byte, error) {
	return d.streamDataRaw(strm, d.crypt != nil)
}

func (d *Document) streamDataRaw(strm stream, decrypt bool) ([]byte, error) {
	raw, err := d.rawStreamBytes(strm)
	if err != nil {
		return nil, err
	}
	if decrypt && d.crypt != nil {
		raw = d.crypt.decrypt(strm.ptr, raw)
	}
	return d.decodeStream(raw, strm.hdr)
}

// rawStreamBytes slices the payload. /Length may be an indirect reference,
// resolved by a direct jump to its xref offset; when /Length is
// unresolvable, the payload runs to the next endstream keyword, trimming
// one trailing EOL.
func (d *Document) rawStreamBytes(strm stream) ([]byte, error) {
	length := int64(-1)
	switch x := strm.hdr["Length"].(type) {
	case int64:
		length = x
	case objptr:
		if entry, ok := d.xref[x.id]; ok && !entry.inStream && entry.offset >= 0 {
			if def := d.parseObjectAt(entry.offset); def != nil {
				if n, ok := def.obj.(int64); ok {
					length = n
				}
			}
		}
	}

	start := strm.offset
	if start < 0 || start > int64(len(d.buf)) {
		return nil, parseErrorf(start, "stream payload offset out of range")
	}
	if length >= 0 && start+length <= int64(len(d.buf)) {
		return d.buf[start : start+length], nil
	}

	end := findNext(d.buf, "endstream", start)
	if end < 0 {
		return nil, parseErrorf(start, "stream length unresolvable and no endstream found")
	}
	payload := d.buf[start:end]
	if n := len(payload); n > 0 && payload[n-1] == '\n' {
		payload = payload[:n-1]
	}
	if n := len(payload); n > 0 && payload[n-1] == '\r' {
		payload = payload[:n-1]
	}
	return payload, nil
}

// Trailer returns the file's trailer dictionary.
func (d *Document) Trailer() Value {
	if d.closed {
		return Value{}
	}
	return Value{d, objptr{}, d.trailer}
}

// Catalog returns the document catalog (the /Root dictionary).
func (d *Document) Catalog() Value {
	return d.Trailer().Key("Root")
}

// collectPages walks the page tree and materializes the page handles in
// traversal order. A node without /Type counts as internal when it has
// /Kids. The walk is cycle-safe.
func (d *Document) collectPages() {
	seen := make(map[objptr]bool)
	var walk func(v Value, depth int)
	walk = func(v Value, depth int) {
		if v.IsNull() || depth > 64 {
			return
		}
		if v.ptr != (objptr{}) {
			if seen[v.ptr] {
				return
			}
			seen[v.ptr] = true
		}
		typ := v.Key("Type").Name()
		kids := v.Key("Kids")
		if typ == "Pages" || (typ == "" && kids.Kind() == Array) {
			for i := 0; i < kids.Len(); i++ {
				walk(kids.Index(i), depth+1)
			}
			return
		}
		if typ == "Page" {
			d.pages = append(d.pages, &Page{doc: d, v: v})
		}
	}
	walk(d.Catalog().Key("Pages"), 0)
}

// NumPage returns the number of pages in the document.
func (d *Document) NumPage() int {
	return len(d.pages)
}

// Page returns the page for the given page number.
// Page numbers are indexed starting at 1, not 0.
// If the page is not found, Page returns nil.
func (d *Document) Page(num int) *Page {
	if num < 1 || num > len(d.pages) {
		return nil
	}
	return d.pages[num-1]
}

// Pages returns all page handles in document order.
func (d *Document) Pages() []*Page {
	return d.pages
}

// Close releases the buffer, cross-reference table, and object cache, and
// severs every page handle. A severed page reads as empty text rather than
// dereferencing freed state. Close is idempotent.
func (d *Document) Close() {
	if d.closed {
		return
	}
	d.closed = true
	for _, p := range d.pages {
		p.doc = nil
		p.v = Value{}
	}
	d.buf = nil
	d.xref = nil
	d.trailer = nil
	d.cache = nil
	d.crypt = nil
	logger.Debug("document: closed", true)
}

// An Outline is a tree describing the outline (also known as the table of
// contents) of a document.
type Outline struct {
	Title string    // title for this element
	Child []Outline // child elements
}

// Outline returns the document outline.
// The Outline returned is the root of the outline tree and typically has
// no Title itself; its children are the top-level entries.
func (d *Document) Outline() Outline {
	return buildOutline(d.Catalog().Key("Outlines"), 0)
}

func buildOutline(entry Value, depth int) Outline {
	var x Outline
	if depth > 32 {
		return x
	}
	x.Title = entry.Key("Title").Text()
	for child := entry.Key("First"); child.Kind() == Dict; child = child.Key("Next") {
		x.Child = append(x.Child, buildOutline(child, depth+1))
		if len(x.Child) > 4096 {
			break
		}
	}
	return x
}
