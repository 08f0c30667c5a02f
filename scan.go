// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Recovery scan for documents whose cross-reference structure is damaged.

package extractly

import (
	"fmt"

	"github.com/barryking/extractly/logger"
)

// scanForObjects rebuilds the cross-reference table from the bytes alone:
// every "num gen obj" header found in a forward scan is indexed, then the
// trailer is recovered from a trailer keyword or, failing that, promoted
// from any recovered dictionary that looks like one.
func (d *Document) scanForObjects() error {
	d.reindexObjects()
	if len(d.xref) == 0 {
		return &ParseError{Message: "no objects found during recovery scan", Offset: -1}
	}
	d.recoverTrailer()
	if d.trailer == nil {
		return &ParseError{Message: "no trailer recovered during scan", Offset: -1}
	}
	logger.Debug(fmt.Sprintf("recovery: reindexed %d objects", len(d.xref)), true)
	return nil
}

// reindexObjects forward-scans for " obj" and walks backwards over the
// generation and object number digit runs. The byte before the number run
// must be whitespace or the start of the file. First hit wins.
func (d *Document) reindexObjects() {
	data := d.buf
	for at := findNext(data, " obj", 0); at >= 0; at = findNext(data, " obj", at+1) {
		// the keyword must terminate at a delimiter or whitespace
		if end := at + 4; end < int64(len(data)) {
			c := data[end]
			if !isSpace(c) && !isDelim(c) {
				continue
			}
		}

		i := at
		for i > 0 && isSpace(data[i-1]) {
			i--
		}
		genEnd := i
		for i > 0 && isDigit(data[i-1]) {
			i--
		}
		genStart := i
		if genStart == genEnd {
			continue
		}
		for i > 0 && isSpace(data[i-1]) {
			i--
		}
		numEnd := i
		if numEnd == genEnd {
			continue // no whitespace between num and gen
		}
		for i > 0 && isDigit(data[i-1]) {
			i--
		}
		numStart := i
		if numStart == numEnd {
			continue
		}
		if numStart > 0 && !isSpace(data[numStart-1]) {
			continue
		}

		num := parseDigits(data[numStart:numEnd])
		gen := parseDigits(data[genStart:genEnd])
		if num < 0 || gen < 0 || gen > 65535 {
			continue
		}
		d.setEntry(uint32(num), xrefEntry{offset: int64(numStart), gen: uint16(gen)})
	}
}

// recoverTrailer finds a usable trailer dictionary: first any dict after a
// trailer keyword that carries /Root, then any recovered object whose dict
// has /Type /XRef or a /Root entry.
func (d *Document) recoverTrailer() {
	for at := findNext(d.buf, "trailer", 0); at >= 0; at = findNext(d.buf, "trailer", at+1) {
		b := newBuffer(d.buf, 0)
		b.seek(at)
		if b.readToken() != keyword("trailer") {
			continue
		}
		t, ok := b.readObject().(dict)
		if !ok {
			continue // malformed trailer, keep scanning
		}
		if t["Root"] != nil {
			d.mergeTrailer(t)
			logger.Debug(fmt.Sprintf("recovery: trailer with /Root at offset %d", at), true)
			return
		}
	}

	for num, entry := range d.xref {
		if entry.inStream || entry.offset < 0 {
			continue
		}
		def := d.parseObjectAt(entry.offset)
		if def == nil {
			continue
		}
		var h dict
		switch obj := def.obj.(type) {
		case dict:
			h = obj
		case stream:
			h = obj.hdr
		default:
			continue
		}
		typ, _ := h["Type"].(name)
		if typ == "XRef" || h["Root"] != nil {
			d.mergeTrailer(h)
			logger.Debug(fmt.Sprintf("recovery: promoted object %d as trailer", num), true)
			return
		}
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func parseDigits(b []byte) int64 {
	if len(b) == 0 || len(b) > 10 {
		return -1
	}
	var x int64
	for _, c := range b {
		x = x*10 + int64(c-'0')
	}
	return x
}
