// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Stream filter decoding: Flate, ASCIIHex, ASCII85, LZW, and the PNG
// predictor postprocessing step.

package extractly

import (
	"fmt"

	"github.com/barryking/extractly/logger"
)

// decodeStream applies the stream's /Filter chain left to right, threading
// the matching /DecodeParms entry into each stage. Unknown filters pass
// the bytes through unchanged so that downstream consumers can still see
// the payload.
func (d *Document) decodeStream(data []byte, hdr dict) ([]byte, error) {
	filters, parms := d.filterChain(hdr)
	for i, f := range filters {
		var p dict
		if i < len(parms) {
			p = parms[i]
		}
		var err error
		switch f {
		case "FlateDecode", "Fl":
			data, err = d.flateDecode(data)
			if err != nil {
				return nil, err
			}
			data, err = applyPredictor(data, p)
		case "ASCIIHexDecode", "AHx":
			data = asciiHexDecode(data)
		case "ASCII85Decode", "A85":
			data = ascii85Decode(data)
		case "LZWDecode", "LZW":
			data = lzwDecode(data, earlyChange(p))
			data, err = applyPredictor(data, p)
		default:
			logger.Debug(fmt.Sprintf("filter: unknown filter %s, passing bytes through", f))
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// filterChain normalizes /Filter (name or array, entries possibly
// indirect) and /DecodeParms (dict or parallel array) into parallel
// slices.
func (d *Document) filterChain(hdr dict) ([]string, []dict) {
	var filters []string
	switch f := d.resolve(objptr{}, hdr["Filter"]).data.(type) {
	case name:
		filters = append(filters, string(f))
	case array:
		for _, e := range f {
			if n, ok := d.resolve(objptr{}, e).data.(name); ok {
				filters = append(filters, string(n))
			}
		}
	}

	var parms []dict
	switch p := d.resolve(objptr{}, hdr["DecodeParms"]).data.(type) {
	case dict:
		parms = append(parms, p)
	case array:
		for _, e := range p {
			q, _ := d.resolve(objptr{}, e).data.(dict)
			parms = append(parms, q)
		}
	}
	return filters, parms
}

func (d *Document) flateDecode(data []byte) ([]byte, error) {
	if d.prims.Inflate == nil {
		logger.Debug("filter: no inflate primitive, passing Flate bytes through")
		return data, nil
	}
	out, err := d.prims.Inflate(data)
	if err != nil {
		return nil, parseErrorf(-1, "flate payload not decodable: %v", err)
	}
	return out, nil
}

func earlyChange(p dict) bool {
	if p == nil {
		return true
	}
	if x, ok := p["EarlyChange"].(int64); ok {
		return x != 0
	}
	return true
}

// asciiHexDecode reads hex digits up to '>', skipping whitespace. An odd
// trailing nibble is high-padded with zero: "4>" decodes to 0x40.
func asciiHexDecode(data []byte) []byte {
	out := make([]byte, 0, len(data)/2)
	hi := -1
	for _, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		x := unhex(c)
		if x < 0 {
			continue
		}
		if hi < 0 {
			hi = x
			continue
		}
		out = append(out, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4))
	}
	return out
}

// ascii85Decode handles the optional <~ prefix, the ~> terminator, and the
// z shorthand for four zero bytes. A partial final group is padded with
// 'u' and the output truncated to match.
func ascii85Decode(data []byte) []byte {
	if len(data) >= 2 && data[0] == '<' && data[1] == '~' {
		data = data[2:]
	}
	out := make([]byte, 0, len(data)*4/5)
	var group [5]byte
	n := 0
	flush := func(k int) {
		for i := k; i < 5; i++ {
			group[i] = 'u' // padding digit, value 84
		}
		var v uint32
		for i := 0; i < 5; i++ {
			v = v*85 + uint32(group[i]-33)
		}
		buf := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		out = append(out, buf[:k-1]...)
	}
	for i := 0; i < len(data); i++ {
		c := data[i]
		if isSpace(c) {
			continue
		}
		if c == '~' {
			break
		}
		if c == 'z' && n == 0 {
			out = append(out, 0, 0, 0, 0)
			continue
		}
		if c < '!' || c > 'u' {
			continue
		}
		group[n] = c
		n++
		if n == 5 {
			var v uint32
			for j := 0; j < 5; j++ {
				v = v*85 + uint32(group[j]-33)
			}
			out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
			n = 0
		}
	}
	if n > 1 {
		flush(n)
	}
	return out
}

// lzwDecode implements the PDF variant of LZW: variable 9-to-12-bit codes,
// 256 reserved for clear and 257 for end-of-data, with EarlyChange
// controlling whether the code width grows one entry early.
func lzwDecode(data []byte, early bool) []byte {
	const (
		clearCode = 256
		eoiCode   = 257
	)
	var out []byte

	table := make([][]byte, 258, 4096)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	reset := func() {
		table = table[:258]
	}

	bump := 0
	if early {
		bump = 1
	}

	width := 9
	var acc uint32
	bits := 0
	prev := -1

	for _, c := range data {
		acc = acc<<8 | uint32(c)
		bits += 8
		for bits >= width {
			code := int(acc >> uint(bits-width) & (1<<uint(width) - 1))
			bits -= width

			switch {
			case code == clearCode:
				reset()
				width = 9
				prev = -1
				continue
			case code == eoiCode:
				return out
			}

			var entry []byte
			switch {
			case code < len(table) && table[code] != nil:
				entry = table[code]
			case prev >= 0 && prev < len(table) && table[prev] != nil:
				// code not yet defined: previous + its first byte
				entry = append(append([]byte{}, table[prev]...), table[prev][0])
			default:
				return out
			}
			out = append(out, entry...)

			if prev >= 0 && len(table) < 4096 {
				ne := append(append([]byte{}, table[prev]...), entry[0])
				table = append(table, ne)
			}
			prev = code

			if len(table)+bump >= 1<<uint(width) && width < 12 {
				width++
			}
		}
	}
	return out
}

// applyPredictor runs PNG-predictor unfiltering when DecodeParms carries
// Predictor >= 10. Rows are columns*colors*bitsPerComponent/8 bytes, each
// preceded by a one-byte filter tag. columns <= 0 makes the predictor a
// no-op, guarding against crafted parameters.
func applyPredictor(data []byte, p dict) ([]byte, error) {
	if p == nil {
		return data, nil
	}
	pred, _ := p["Predictor"].(int64)
	if pred < 10 {
		return data, nil
	}
	columns := int64(1)
	if c, ok := p["Columns"].(int64); ok {
		columns = c
	}
	if columns <= 0 {
		return data, nil
	}
	colors := int64(1)
	if c, ok := p["Colors"].(int64); ok && c > 0 {
		colors = c
	}
	bpc := int64(8)
	if c, ok := p["BitsPerComponent"].(int64); ok && c > 0 {
		bpc = c
	}

	rowLen := int(columns * colors * bpc / 8)
	if rowLen <= 0 {
		return data, nil
	}
	bpp := int(colors * bpc / 8)
	if bpp < 1 {
		bpp = 1
	}

	out := make([]byte, 0, len(data))
	prior := make([]byte, rowLen)
	for pos := 0; pos+1 <= len(data); pos += 1 + rowLen {
		tag := data[pos]
		row := data[pos+1:]
		if len(row) > rowLen {
			row = row[:rowLen]
		}
		cur := make([]byte, len(row))
		copy(cur, row)

		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < len(cur); i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := 0; i < len(cur); i++ {
				cur[i] += prior[i]
			}
		case 3: // Average
			for i := 0; i < len(cur); i++ {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prior[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < len(cur); i++ {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prior[i-bpp]
				}
				cur[i] += paeth(left, prior[i], upLeft)
			}
		default:
			return nil, parseErrorf(-1, "unknown PNG predictor filter tag %d", tag)
		}

		out = append(out, cur...)
		copy(prior, cur)
		if len(cur) < rowLen {
			break // short final row
		}
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
