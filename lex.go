// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Reading of PDF tokens and objects from the in-memory document buffer.

package extractly

import (
	"bytes"
	"io"
	"strconv"
)

// A token is a PDF token in the input stream, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	keyword, a PDF keyword
//	name, a PDF name without the leading slash
//
// io.EOF marks the end of the buffer.
type token interface{}

// A keyword is a PDF keyword.
// Delimiter tokens used in higher-level syntax,
// such as "<<", ">>", "[", "]", "{", "}", are also treated as keywords.
type keyword string

// A buffer is a forward cursor over a fully resident byte slice.
// Malformed input never makes the buffer fail hard: it emits what it can
// and reports io.EOF at the end of the data. Higher layers detect parse
// errors by observing an unexpected token type.
type buffer struct {
	data        []byte
	pos         int
	base        int64 // document offset of data[0]
	tmp         []byte
	unread      []token
	allowObjptr bool
	allowStream bool
	crypt       *cryptState // non-nil when strings need decryption
	objptr      objptr      // object being parsed, for per-object keys
}

// newBuffer returns a cursor over data, whose first byte sits at the given
// offset in the document.
func newBuffer(data []byte, base int64) *buffer {
	return &buffer{
		data:        data,
		base:        base,
		allowObjptr: true,
		allowStream: true,
	}
}

func (b *buffer) eof() bool {
	return b.pos >= len(b.data)
}

func (b *buffer) readByte() (byte, bool) {
	if b.pos >= len(b.data) {
		return 0, false
	}
	c := b.data[b.pos]
	b.pos++
	return c, true
}

func (b *buffer) unreadByte() {
	if b.pos > 0 {
		b.pos--
	}
}

// offset reports the document offset of the next byte to be read.
func (b *buffer) offset() int64 {
	return b.base + int64(b.pos)
}

// seek positions the cursor at the given document offset.
func (b *buffer) seek(offset int64) {
	p := offset - b.base
	if p < 0 {
		p = 0
	}
	if p > int64(len(b.data)) {
		p = int64(len(b.data))
	}
	b.pos = int(p)
	b.unread = b.unread[:0]
}

// readLine consumes bytes through LF or CR[LF] and returns the line with
// the terminator stripped.
func (b *buffer) readLine() string {
	start := b.pos
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if c == '\n' || c == '\r' {
			line := string(b.data[start:b.pos])
			b.pos++
			if c == '\r' && b.pos < len(b.data) && b.data[b.pos] == '\n' {
				b.pos++
			}
			return line
		}
		b.pos++
	}
	return string(b.data[start:b.pos])
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}

	// Find first non-space, non-comment byte.
	var c byte
	var ok bool
	for {
		c, ok = b.readByte()
		if !ok {
			return io.EOF
		}
		if isSpace(c) {
			continue
		}
		if c == '%' {
			for {
				c, ok = b.readByte()
				if !ok {
					return io.EOF
				}
				if c == '\r' || c == '\n' {
					break
				}
			}
			continue
		}
		break
	}

	switch c {
	case '<':
		if c, _ := b.readByte(); c == '<' {
			return keyword("<<")
		}
		b.unreadByte()
		return b.readHexString()

	case '(':
		return b.readLiteralString()

	case '[', ']', '{', '}':
		return keyword(string(rune(c)))

	case '/':
		return b.readName()

	case '>':
		c2, ok := b.readByte()
		if ok && c2 == '>' {
			return keyword(">>")
		}
		if ok {
			b.unreadByte()
		}
		fallthrough

	default:
		if isDelim(c) {
			// Stray delimiter; skip it and keep going.
			return b.readToken()
		}
		b.unreadByte()
		return b.readKeyword()
	}
}

func (b *buffer) readHexString() token {
	tmp := b.tmp[:0]
	hi := -1
	for {
		c, ok := b.readByte()
		if !ok || c == '>' {
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
		tmp = append(tmp, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		// odd trailing nibble pads with zero on the right
		tmp = append(tmp, byte(hi<<4))
	}
	b.tmp = tmp
	return string(tmp)
}

func unhex(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b) - '0'
	case 'a' <= b && b <= 'f':
		return int(b) - 'a' + 10
	case 'A' <= b && b <= 'F':
		return int(b) - 'A' + 10
	}
	return -1
}

func (b *buffer) readLiteralString() token {
	tmp := b.tmp[:0]
	depth := 1
Loop:
	for {
		c, ok := b.readByte()
		if !ok {
			break
		}
		switch c {
		default:
			tmp = append(tmp, c)
		case '(':
			depth++
			tmp = append(tmp, c)
		case ')':
			if depth--; depth == 0 {
				break Loop
			}
			tmp = append(tmp, c)
		case '\\':
			c, ok = b.readByte()
			if !ok {
				break Loop
			}
			switch c {
			default:
				tmp = append(tmp, '\\', c)
			case 'n':
				tmp = append(tmp, '\n')
			case 'r':
				tmp = append(tmp, '\r')
			case 'b':
				tmp = append(tmp, '\b')
			case 't':
				tmp = append(tmp, '\t')
			case 'f':
				tmp = append(tmp, '\f')
			case '(', ')', '\\':
				tmp = append(tmp, c)
			case '\r':
				if c, _ := b.readByte(); c != '\n' {
					b.unreadByte()
				}
				// line continuation: no append
			case '\n':
				// no append
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := int(c - '0')
				for i := 0; i < 2; i++ {
					c, ok = b.readByte()
					if !ok {
						break
					}
					if c < '0' || c > '7' {
						b.unreadByte()
						break
					}
					x = x*8 + int(c-'0')
				}
				tmp = append(tmp, byte(x)) // low 8 bits kept
			}
		}
	}
	b.tmp = tmp
	return string(tmp)
}

func (b *buffer) readName() token {
	tmp := b.tmp[:0]
	for {
		c, ok := b.readByte()
		if !ok {
			break
		}
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		if c == '#' {
			c1, ok1 := b.readByte()
			c2, ok2 := b.readByte()
			if ok1 && ok2 {
				x := unhex(c1)<<4 | unhex(c2)
				if x >= 0 {
					tmp = append(tmp, byte(x))
					continue
				}
			}
			if ok2 {
				b.unreadByte()
			}
			if ok1 {
				b.unreadByte()
			}
			tmp = append(tmp, c)
			continue
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	return name(string(tmp))
}

func (b *buffer) readKeyword() token {
	tmp := b.tmp[:0]
	for {
		c, ok := b.readByte()
		if !ok {
			break
		}
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	s := string(tmp)
	switch {
	case s == "":
		return io.EOF
	case s == "true":
		return true
	case s == "false":
		return false
	case isInteger(s):
		x, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return keyword(s)
		}
		return x
	case isReal(s):
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return keyword(s)
		}
		return x
	}
	return keyword(s)
}

func isInteger(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || '9' < c {
			return false
		}
	}
	return true
}

func isReal(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	ndot := 0
	for _, c := range s {
		if c == '.' {
			ndot++
			continue
		}
		if c < '0' || '9' < c {
			return false
		}
	}
	return ndot == 1
}

// readObject reads one object: a scalar, array, dictionary, stream, or
// indirect reference / definition when allowObjptr is set.
func (b *buffer) readObject() object {
	tok := b.readToken()
	return b.readObjectAfter(tok)
}

func (b *buffer) readObjectAfter(tok token) object {
	if kw, ok := tok.(keyword); ok {
		switch kw {
		case "null":
			return nil
		case "<<":
			return b.readDict()
		case "[":
			return b.readArray()
		}
		return nil
	}
	if tok == io.EOF {
		return nil
	}

	if str, ok := tok.(string); ok && b.crypt != nil && b.objptr.id != 0 {
		tok = string(b.crypt.decrypt(b.objptr, []byte(str)))
	}

	if !b.allowObjptr {
		return tok
	}

	if t1, ok := tok.(int64); ok && int64(uint32(t1)) == t1 {
		tok2 := b.readToken()
		if t2, ok := tok2.(int64); ok && int64(uint16(t2)) == t2 {
			tok3 := b.readToken()
			switch tok3 {
			case keyword("R"):
				return objptr{uint32(t1), uint16(t2)}
			case keyword("obj"):
				old := b.objptr
				b.objptr = objptr{uint32(t1), uint16(t2)}
				obj := b.readObject()
				if _, ok := obj.(stream); !ok {
					tok4 := b.readToken()
					if tok4 != keyword("endobj") {
						b.unreadToken(tok4)
					}
				}
				b.objptr = old
				return objdef{objptr{uint32(t1), uint16(t2)}, obj}
			}
			b.unreadToken(tok3)
		}
		b.unreadToken(tok2)
	}
	return tok
}

func (b *buffer) readArray() object {
	var x array
	for {
		tok := b.readToken()
		if tok == io.EOF || tok == keyword("]") {
			break
		}
		x = append(x, b.readObjectAfter(tok))
	}
	return x
}

func (b *buffer) readDict() object {
	x := make(dict)
	for {
		tok := b.readToken()
		if tok == io.EOF || tok == keyword(">>") {
			break
		}
		n, ok := tok.(name)
		if !ok {
			// first occurrence wins; skip the stray value too
			b.readObject()
			continue
		}
		v := b.readObject()
		if _, exists := x[n]; !exists {
			x[n] = v
		}
	}

	if !b.allowStream {
		return x
	}

	tok := b.readToken()
	if tok != keyword("stream") {
		b.unreadToken(tok)
		return x
	}

	// exactly one EOL after the stream keyword
	if c, ok := b.readByte(); ok {
		switch c {
		case '\r':
			if c, _ := b.readByte(); c != '\n' {
				b.unreadByte()
			}
		case '\n':
			// ok
		default:
			b.unreadByte()
		}
	}

	return stream{hdr: x, ptr: b.objptr, offset: b.offset()}
}

// findLast returns the document offset of the rightmost occurrence of
// needle in the whole buffer, or -1.
func findLast(data []byte, needle string) int64 {
	i := bytes.LastIndex(data, []byte(needle))
	return int64(i)
}

// findNext returns the document offset of the first occurrence of needle
// at or after from, or -1.
func findNext(data []byte, needle string, from int64) int64 {
	if from < 0 {
		from = 0
	}
	if from >= int64(len(data)) {
		return -1
	}
	i := bytes.Index(data[from:], []byte(needle))
	if i < 0 {
		return -1
	}
	return from + int64(i)
}

// isSpace reports whether b is one of the six whitespace characters
// defined by ISO 32000-1 §7.2.2 for PDF syntax: 00, 09, 0A, 0C, 0D, 20.
func isSpace(b byte) bool {
	switch b {
	case '\x00', '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '<', '>', '(', ')', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
