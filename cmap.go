// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// ToUnicode CMap parsing: bfchar and bfrange blocks mapping font codes to
// Unicode strings.

package extractly

import (
	"io"

	"github.com/barryking/extractly/logger"
)

// A toUnicodeMap maps font-internal character codes to Unicode strings.
// twoByte marks fonts whose codespace is two bytes wide, which decides how
// show-string bytes are chunked into codes.
type toUnicodeMap struct {
	m       map[uint32]string
	twoByte bool
}

func (m *toUnicodeMap) lookup(code uint32) (string, bool) {
	s, ok := m.m[code]
	return s, ok
}

// parseToUnicode reads the decoded ToUnicode stream. The parser is token
// driven and tolerant: unknown operators are skipped, malformed blocks end
// the block rather than the map, and destination code points beyond
// 0x10FFFF are dropped, never emitted.
func parseToUnicode(data []byte) *toUnicodeMap {
	m := &toUnicodeMap{m: make(map[uint32]string)}
	b := newBuffer(data, 0)
	b.allowObjptr = false
	b.allowStream = false

	for {
		tok := b.readToken()
		if tok == io.EOF {
			break
		}
		kw, ok := tok.(keyword)
		if !ok {
			continue
		}

		switch kw {
		case "begincodespacerange":
			for {
				t := b.readToken()
				if t == io.EOF || t == keyword("endcodespacerange") {
					break
				}
				lo, ok := t.(string)
				hi, ok2 := b.readToken().(string)
				if !ok || !ok2 {
					break
				}
				if len(lo) == 2 && len(hi) == 2 {
					m.twoByte = true
				}
			}
		case "beginbfchar":
			for {
				t := b.readToken()
				if t == io.EOF || t == keyword("endbfchar") {
					break
				}
				src, ok := t.(string)
				dst, ok2 := b.readToken().(string)
				if !ok || !ok2 || len(src) == 0 {
					break
				}
				if len(src) == 2 {
					m.twoByte = true
				}
				m.set(codeOf(src), utf16Runes(dst))
			}
		case "beginbfrange":
			for {
				t := b.readToken()
				if t == io.EOF || t == keyword("endbfrange") {
					break
				}
				lo, ok := t.(string)
				if !ok {
					break
				}
				hi, ok := popStringToken(b)
				if !ok {
					break
				}
				if len(lo) == 2 {
					m.twoByte = true
				}
				loCode, hiCode := codeOf(lo), codeOf(hi)
				if hiCode < loCode || hiCode-loCode > 0xFFFF {
					// hostile or corrupt range, skip it
					b.readToken()
					continue
				}

				t = b.readToken()
				switch dst := t.(type) {
				case string:
					base := utf16Runes(dst)
					for c := loCode; c <= hiCode; c++ {
						m.set(c, incrementLast(base, int(c-loCode)))
					}
				case keyword:
					if dst != "[" {
						continue
					}
					for c := loCode; ; c++ {
						e := b.readToken()
						if e == io.EOF || e == keyword("]") {
							break
						}
						if s, ok := e.(string); ok && c <= hiCode {
							m.set(c, utf16Runes(s))
						}
					}
				}
			}
		}
	}

	if len(m.m) == 0 {
		logger.Debug("cmap: ToUnicode stream yielded no mappings")
	}
	return m
}

func popStringToken(b *buffer) (string, bool) {
	s, ok := b.readToken().(string)
	return s, ok
}

// set stores the mapping, dropping code points outside the Unicode range.
func (m *toUnicodeMap) set(code uint32, runes []rune) {
	kept := runes[:0]
	for _, r := range runes {
		if r >= 0 && r <= 0x10FFFF {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return
	}
	m.m[code] = string(kept)
}

// codeOf interprets the raw bytes of a hex token as a big-endian code.
func codeOf(s string) uint32 {
	var x uint32
	for i := 0; i < len(s) && i < 4; i++ {
		x = x<<8 | uint32(s[i])
	}
	return x
}

// utf16Runes decodes a destination token (UTF-16 BE, surrogates combined)
// into runes.
func utf16Runes(s string) []rune {
	return []rune(utf16Decode([]byte(s)))
}

// incrementLast offsets the final code point of base by delta, the
// bfrange rule. An offset that would pass 0x10FFFF stops there.
func incrementLast(base []rune, delta int) []rune {
	if len(base) == 0 {
		return nil
	}
	out := make([]rune, len(base))
	copy(out, base)
	last := int(out[len(out)-1]) + delta
	if last > 0x10FFFF {
		last = 0x10FFFF
	}
	out[len(out)-1] = rune(last)
	return out
}
