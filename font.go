// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Font resolution: encoding vectors, /Differences, ToUnicode maps, and
// width tables for simple and CID fonts.

package extractly

import (
	"fmt"
	"strings"

	"github.com/barryking/extractly/logger"
)

// A fontInfo carries everything the interpreter needs from one font
// resource: how to decode show-string bytes to Unicode and how wide each
// code is, in 1/1000 text-space units.
type fontInfo struct {
	baseFont     string
	toUnicode    *toUnicodeMap
	encoding     *[256]rune
	differences  map[byte]string
	isIdentity   bool
	widths       map[uint32]float64
	defaultWidth float64
}

// buildFont interprets a font dictionary. Unknown subtypes degrade to a
// WinAnsi byte font rather than failing the page.
func buildFont(v Value) *fontInfo {
	f := &fontInfo{
		widths:       make(map[uint32]float64),
		defaultWidth: 600,
	}
	f.baseFont = trimSubsetTag(v.Key("BaseFont").Name())

	if tu := v.Key("ToUnicode"); tu.Kind() == Stream {
		if data := tu.Stream(); data != nil {
			f.toUnicode = parseToUnicode(data)
		}
	}

	subtype := v.Key("Subtype").Name()
	if subtype == "Type0" {
		f.buildType0(v)
		return f
	}

	f.buildSimple(v)
	return f
}

func trimSubsetTag(base string) string {
	if i := strings.Index(base, "+"); i >= 0 && i == 6 {
		return base[i+1:]
	}
	return base
}

// buildType0 handles composite fonts: identity 2-byte decoding unless the
// ToUnicode map says otherwise, widths from the single descendant CID
// font's /DW and /W.
func (f *fontInfo) buildType0(v Value) {
	f.isIdentity = true
	if enc := v.Key("Encoding"); enc.Kind() == Name {
		n := enc.Name()
		if n != "Identity-H" && n != "Identity-V" {
			logger.Debug(fmt.Sprintf("font %s: unknown Type0 encoding %s, assuming identity", f.baseFont, n))
		}
	}

	desc := v.Key("DescendantFonts").Index(0)
	if desc.IsNull() {
		f.defaultWidth = 1000
		return
	}

	f.defaultWidth = 1000
	if dw := desc.Key("DW"); dw.Kind() == Integer || dw.Kind() == Real {
		f.defaultWidth = dw.Float64()
	} else if mw := desc.Key("FontDescriptor").Key("MissingWidth"); !mw.IsNull() {
		f.defaultWidth = mw.Float64()
	}

	// /W is runs of either "c [w1 w2 ...]" or "c1 c2 w".
	w := desc.Key("W")
	for i := 0; i < w.Len(); {
		first := w.Index(i)
		if first.Kind() != Integer && first.Kind() != Real {
			i++
			continue
		}
		c1 := uint32(first.Int64())
		next := w.Index(i + 1)
		switch next.Kind() {
		case Array:
			for j := 0; j < next.Len(); j++ {
				f.widths[c1+uint32(j)] = next.Index(j).Float64()
			}
			i += 2
		case Integer, Real:
			c2 := uint32(next.Int64())
			wv := w.Index(i + 2).Float64()
			if c2 >= c1 && c2-c1 <= 0xFFFF {
				for c := c1; c <= c2; c++ {
					f.widths[c] = wv
				}
			}
			i += 3
		default:
			i++
		}
	}
	f.fixDefaultWidth()
}

// buildSimple handles Type1 / TrueType / MMType1 / Type3 fonts: widths
// from /FirstChar + /Widths, the encoding vector or /Differences from
// /Encoding, WinAnsi as the fallback.
func (f *fontInfo) buildSimple(v Value) {
	first := int(v.Key("FirstChar").Int64())
	widths := v.Key("Widths")
	for i := 0; i < widths.Len(); i++ {
		f.widths[uint32(first+i)] = widths.Index(i).Float64()
	}

	f.defaultWidth = 600
	if mw := v.Key("FontDescriptor").Key("MissingWidth"); !mw.IsNull() {
		f.defaultWidth = mw.Float64()
	}
	f.fixDefaultWidth()

	enc := v.Key("Encoding")
	switch enc.Kind() {
	case Name:
		f.encoding = encodingByName(enc.Name())
	case Dict:
		f.encoding = encodingByName(enc.Key("BaseEncoding").Name())
		f.differences = readDifferences(enc.Key("Differences"))
	default:
		f.encoding = &winAnsiEncoding
	}
	if f.encoding == nil {
		f.encoding = &winAnsiEncoding
	}
}

// fixDefaultWidth substitutes the mean of the explicit widths when the
// default resolves to zero, which otherwise produces catastrophic spacing.
func (f *fontInfo) fixDefaultWidth() {
	if f.defaultWidth != 0 || len(f.widths) == 0 {
		return
	}
	var sum float64
	for _, w := range f.widths {
		sum += w
	}
	f.defaultWidth = sum / float64(len(f.widths))
}

func encodingByName(n string) *[256]rune {
	switch n {
	case "WinAnsiEncoding":
		return &winAnsiEncoding
	case "MacRomanEncoding":
		return &macRomanEncoding
	case "MacExpertEncoding":
		return &macExpertEncoding
	case "StandardEncoding":
		return &standardEncoding
	}
	return nil
}

// readDifferences walks the alternating "code name name ..." array.
func readDifferences(v Value) map[byte]string {
	if v.Kind() != Array {
		return nil
	}
	diff := make(map[byte]string)
	code := 0
	for i := 0; i < v.Len(); i++ {
		e := v.Index(i)
		switch e.Kind() {
		case Integer, Real:
			code = int(e.Float64())
		case Name:
			if code >= 0 && code < 256 {
				diff[byte(code)] = e.Name()
			}
			code++
		}
	}
	return diff
}

// textMetrics accumulates the results of decoding one show string.
type textMetrics struct {
	text    string
	widthEm float64 // total glyph width in ems (width units / 1000)
	chars   int
	spaces  int // code 32 occurrences, for word spacing
}

// hasWidths reports whether the font carries real metric widths, which
// the assembler uses to pick its spacing rule.
func (f *fontInfo) hasWidths() bool {
	return f != nil && len(f.widths) > 0
}

// decode maps the raw show-string bytes to Unicode and accumulates width
// metrics, picking the first applicable rule: ToUnicode, then
// Differences/encoding vector, then identity, then ASCII passthrough.
func (f *fontInfo) decode(raw string) textMetrics {
	var m textMetrics
	if f == nil {
		f = &fontInfo{defaultWidth: 600}
	}
	var sb strings.Builder

	addCode := func(code uint32) {
		if w, ok := f.widths[code]; ok {
			m.widthEm += w / 1000
		} else {
			m.widthEm += f.defaultWidth / 1000
		}
		m.chars++
		if code == 32 {
			m.spaces++
		}
	}

	switch {
	case f.toUnicode != nil:
		if f.isIdentity || f.toUnicode.twoByte {
			for i := 0; i+1 < len(raw); i += 2 {
				code := uint32(raw[i])<<8 | uint32(raw[i+1])
				addCode(code)
				if s, ok := f.toUnicode.lookup(code); ok {
					sb.WriteString(s)
				} else if code >= 0x20 {
					sb.WriteRune(rune(code))
				}
			}
		} else {
			for i := 0; i < len(raw); i++ {
				code := uint32(raw[i])
				addCode(code)
				if s, ok := f.toUnicode.lookup(code); ok {
					sb.WriteString(s)
				} else if code >= 0x20 {
					sb.WriteRune(rune(code))
				}
			}
		}

	case f.differences != nil || f.encoding != nil:
		for i := 0; i < len(raw); i++ {
			c := raw[i]
			addCode(uint32(c))
			if g, ok := f.differences[c]; ok {
				if r, ok := glyphToRune(g); ok {
					sb.WriteRune(r)
					continue
				}
			}
			if f.encoding != nil && f.encoding[c] != 0 {
				sb.WriteRune(f.encoding[c])
				continue
			}
			if c >= 0x20 && c <= 0x7E {
				sb.WriteByte(c)
			}
		}

	case f.isIdentity:
		for i := 0; i+1 < len(raw); i += 2 {
			code := uint32(raw[i])<<8 | uint32(raw[i+1])
			addCode(code)
			if code >= 0x20 {
				sb.WriteRune(rune(code))
			}
		}

	default:
		for i := 0; i < len(raw); i++ {
			c := raw[i]
			addCode(uint32(c))
			if c >= 0x20 {
				sb.WriteByte(c)
			}
		}
	}

	m.text = sb.String()
	return m
}
