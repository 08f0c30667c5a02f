// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Content-stream interpretation: the PDF text state machine, positioned
// run emission, and Form XObject recursion.

package extractly

import (
	"fmt"
	"io"
	"math"

	"github.com/barryking/extractly/logger"
)

// A matrix is a 3x2 affine transform in PDF order [a b c d e f].
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// mul composes m·n with m applied first, the PDF convention for both
// cm (new·current) and text positioning (translate·TLM).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// A TextItem is one positioned text run: a single Tj/TJ/'/" emission in
// device space.
type TextItem struct {
	S        string  // decoded Unicode text
	X        float64 // device-space x
	Y        float64 // device-space y
	FontSize float64 // effective size after matrix scaling
	Font     string  // base font name
	W        float64 // rendered width in device units

	hasWidths bool // the font carried real metric widths
	obj       int  // text-object id, incremented at every BT
}

// textState is the full graphics+text state snapshot pushed by q.
type textState struct {
	font     *fontInfo
	fontName string
	fontSize float64
	tc       float64 // char spacing
	tw       float64 // word spacing
	tz       float64 // horizontal scaling, percent
	tl       float64 // leading
	ts       float64 // rise
	tr       int     // render mode
	tm       matrix
	tlm      matrix
	ctm      matrix
}

type interp struct {
	d     *Document
	items []TextItem
	objID int
}

// extractItems runs the interpreter over the page's concatenated content
// streams and returns the positioned runs.
func (p *Page) extractItems() []TextItem {
	if p.doc == nil || p.v.IsNull() {
		return nil
	}
	content := p.contentBytes()
	if len(content) == 0 {
		return nil
	}
	in := &interp{d: p.doc}
	in.run(content, resChain{p.resources()}, textState{tz: 100, ctm: identityMatrix}, 0)
	return in.items
}

// contentBytes concatenates /Contents, which may be a single stream or an
// array of streams.
func (p *Page) contentBytes() []byte {
	contents := p.v.Key("Contents")
	switch contents.Kind() {
	case Stream:
		return contents.Stream()
	case Array:
		var out []byte
		for i := 0; i < contents.Len(); i++ {
			if data := contents.Index(i).Stream(); data != nil {
				out = append(out, data...)
				out = append(out, '\n')
			}
		}
		return out
	}
	return nil
}

// resources climbs the /Parent chain for the nearest /Resources, with a
// small visited set for cycle safety.
func (p *Page) resources() Value {
	seen := make(map[objptr]bool)
	for v := p.v; !v.IsNull(); v = v.Key("Parent") {
		if v.ptr != (objptr{}) {
			if seen[v.ptr] {
				break
			}
			seen[v.ptr] = true
		}
		if r := v.Key("Resources"); !r.IsNull() {
			return r
		}
	}
	return Value{}
}

// resChain is a stack of resource dictionaries, innermost first, so a
// Form XObject's resources shadow its parent's without losing them.
type resChain []Value

func (rc resChain) lookup(category, n string) Value {
	for _, res := range rc {
		if v := res.Key(category).Key(n); !v.IsNull() {
			return v
		}
	}
	return Value{}
}

// fontSet lazily builds fontInfo values for a resource chain.
type fontSet struct {
	res   resChain
	built map[string]*fontInfo
}

func newFontSet(res resChain) *fontSet {
	return &fontSet{res: res, built: make(map[string]*fontInfo)}
}

func (fs *fontSet) get(n string) *fontInfo {
	if f, ok := fs.built[n]; ok {
		return f
	}
	v := fs.res.lookup("Font", n)
	var f *fontInfo
	if !v.IsNull() {
		f = buildFont(v)
	}
	fs.built[n] = f
	return f
}

// run interprets one content stream. Operators outside the handled set
// are parsed and their operands discarded.
func (in *interp) run(content []byte, res resChain, g textState, depth int) {
	if depth > maxFormDepth {
		logger.Debug("content: form recursion depth cap reached")
		return
	}
	fonts := newFontSet(res)

	b := newBuffer(content, 0)
	b.allowObjptr = false
	b.allowStream = false

	var stack []textState
	var args []Value

	for {
		tok := b.readToken()
		if tok == io.EOF {
			break
		}
		switch t := tok.(type) {
		case keyword:
			op := string(t)
			if op == "[" || op == "<<" {
				b.unreadToken(tok)
				args = append(args, Value{in.d, objptr{}, b.readObject()})
				continue
			}
			in.exec(op, args, &g, &stack, fonts, res, b, depth)
			args = args[:0]
		default:
			args = append(args, Value{in.d, objptr{}, tok})
		}
		if len(args) > 32 {
			args = args[:0] // runaway operand list in damaged content
		}
	}
}

func (in *interp) exec(op string, args []Value, g *textState, stack *[]textState, fonts *fontSet, res resChain, b *buffer, depth int) {
	num := func(i int) float64 {
		if i < 0 || i >= len(args) {
			return 0
		}
		return args[i].Float64()
	}

	switch op {
	case "BT":
		g.tm = identityMatrix
		g.tlm = identityMatrix
		in.objID++
	case "ET":
		// nothing to restore

	case "Tf":
		if len(args) >= 2 {
			g.fontName = args[0].Name()
			g.font = fonts.get(g.fontName)
			g.fontSize = args[1].Float64()
		}
	case "Tc":
		g.tc = num(0)
	case "Tw":
		g.tw = num(0)
	case "Tz":
		g.tz = num(0)
	case "TL":
		g.tl = num(0)
	case "Ts":
		g.ts = num(0)
	case "Tr":
		g.tr = int(num(0))

	case "Td":
		g.tlm = translate(num(0), num(1)).mul(g.tlm)
		g.tm = g.tlm
	case "TD":
		g.tl = -num(1)
		g.tlm = translate(num(0), num(1)).mul(g.tlm)
		g.tm = g.tlm
	case "Tm":
		g.tm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
		g.tlm = g.tm
	case "T*":
		g.tlm = translate(0, -g.tl).mul(g.tlm)
		g.tm = g.tlm

	case "Tj":
		if len(args) >= 1 {
			in.show(g, args[0].RawString())
		}
	case "TJ":
		if len(args) >= 1 {
			v := args[0]
			for i := 0; i < v.Len(); i++ {
				e := v.Index(i)
				if e.Kind() == String {
					in.show(g, e.RawString())
				} else {
					g.tm[4] -= e.Float64() / 1000 * g.fontSize * (g.tz / 100)
				}
			}
		}
	case "'":
		g.tlm = translate(0, -g.tl).mul(g.tlm)
		g.tm = g.tlm
		if len(args) >= 1 {
			in.show(g, args[len(args)-1].RawString())
		}
	case "\"":
		if len(args) >= 3 {
			g.tw = args[0].Float64()
			g.tc = args[1].Float64()
		}
		g.tlm = translate(0, -g.tl).mul(g.tlm)
		g.tm = g.tlm
		if len(args) >= 1 {
			in.show(g, args[len(args)-1].RawString())
		}

	case "q":
		*stack = append(*stack, *g)
	case "Q":
		if n := len(*stack); n > 0 {
			*g = (*stack)[n-1]
			*stack = (*stack)[:n-1]
		}
	case "cm":
		if len(args) >= 6 {
			m := matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			g.ctm = m.mul(g.ctm)
		}

	case "Do":
		if len(args) >= 1 {
			in.doXObject(args[0].Name(), res, g, depth)
		}
	case "gs":
		if len(args) >= 1 {
			in.extGState(args[0].Name(), res, g)
		}
	case "BI":
		skipInlineImage(b)

	default:
		// parsed, operands discarded
	}
}

// doXObject recurses into Form XObjects with the form matrix composed
// onto the CTM and the form's resources merged over the parent's.
func (in *interp) doXObject(xname string, res resChain, g *textState, depth int) {
	xo := res.lookup("XObject", xname)
	if xo.Kind() != Stream || xo.Key("Subtype").Name() != "Form" {
		return
	}
	data := xo.Stream()
	if data == nil {
		return
	}

	inner := *g
	if m := xo.Key("Matrix"); m.Kind() == Array && m.Len() == 6 {
		fm := matrix{
			m.Index(0).Float64(), m.Index(1).Float64(),
			m.Index(2).Float64(), m.Index(3).Float64(),
			m.Index(4).Float64(), m.Index(5).Float64(),
		}
		inner.ctm = fm.mul(g.ctm)
	}

	chain := res
	if formRes := xo.Key("Resources"); !formRes.IsNull() {
		chain = append(resChain{formRes}, res...)
	}
	logger.Debug(fmt.Sprintf("content: entering form XObject %s (depth %d)", xname, depth+1))
	in.run(data, chain, inner, depth+1)
}

// extGState applies an ExtGState /Font entry: [fontRef size].
func (in *interp) extGState(gsname string, res resChain, g *textState) {
	gsDict := res.lookup("ExtGState", gsname)
	font := gsDict.Key("Font")
	if font.Kind() != Array || font.Len() != 2 {
		return
	}
	fv := font.Index(0)
	if fv.IsNull() {
		return
	}
	g.font = buildFont(fv)
	g.fontName = g.font.baseFont
	g.fontSize = font.Index(1).Float64()
}

// skipInlineImage consumes bytes through the EI operator: EI preceded by
// whitespace and followed by whitespace or end of data.
func skipInlineImage(b *buffer) {
	for {
		c, ok := b.readByte()
		if !ok {
			return
		}
		if !isSpace(c) {
			continue
		}
		c2, ok := b.readByte()
		if !ok {
			return
		}
		if c2 != 'E' {
			b.unreadByte()
			continue
		}
		c3, ok := b.readByte()
		if !ok {
			return
		}
		if c3 != 'I' {
			b.unreadByte()
			b.unreadByte()
			continue
		}
		c4, ok := b.readByte()
		if !ok {
			return // EI at end of data
		}
		if isSpace(c4) {
			b.unreadByte()
			return
		}
		b.unreadByte()
	}
}

// show emits one positioned run and advances the text matrix by the run's
// width plus character and word spacing, scaled horizontally.
func (in *interp) show(g *textState, raw string) {
	if raw == "" {
		return
	}
	m := g.font.decode(raw)

	if m.text != "" && (g.tr != 3 || in.d.opts.IncludeInvisibleText) {
		scale := math.Abs(g.tm[3])
		if scale == 0 {
			scale = math.Abs(g.tm[0])
		}
		fontName := ""
		if g.font != nil {
			fontName = g.font.baseFont
		}
		in.items = append(in.items, TextItem{
			S:         m.text,
			X:         g.tm[4]*g.ctm[0] + g.tm[5]*g.ctm[2] + g.ctm[4],
			Y:         g.tm[4]*g.ctm[1] + g.tm[5]*g.ctm[3] + g.ctm[5],
			FontSize:  g.fontSize * scale,
			Font:      fontName,
			W:         m.widthEm * g.fontSize * math.Abs(g.tm[0]),
			hasWidths: g.font.hasWidths(),
			obj:       in.objID,
		})
	}

	advance := (m.widthEm*g.fontSize + float64(m.chars)*g.tc + float64(m.spaces)*g.tw) * (g.tz / 100)
	g.tm[4] += advance
}
