// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestASCIIHexDecode(t *testing.T) {
	assert.Equal(t, []byte("Hello"), asciiHexDecode([]byte("48656C6C6F>")))
	assert.Equal(t, []byte("Hello"), asciiHexDecode([]byte("48 65 6c 6c 6f >")))
	// odd trailing nibble is high-padded: "4>" is 0x40
	assert.Equal(t, []byte{0x40}, asciiHexDecode([]byte("4>")))
	assert.Empty(t, asciiHexDecode([]byte(">")))
}

func TestASCII85Decode_KnownGroup(t *testing.T) {
	assert.Equal(t, []byte("Man "), ascii85Decode([]byte("9jqo^~>")))
}

func TestASCII85Decode_ZShorthand(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0}, ascii85Decode([]byte("z~>")))
}

func TestASCII85Decode_RoundTrip(t *testing.T) {
	for _, plain := range []string{"a", "ab", "abc", "abcd", "abcde", "The quick brown fox."} {
		var buf bytes.Buffer
		w := ascii85.NewEncoder(&buf)
		_, err := w.Write([]byte(plain))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		buf.WriteString("~>")

		assert.Equal(t, []byte(plain), ascii85Decode(buf.Bytes()), "plain %q", plain)
	}
}

func TestASCII85Decode_PrefixTolerated(t *testing.T) {
	assert.Equal(t, []byte("Man "), ascii85Decode([]byte("<~9jqo^~>")))
}

func TestLZWDecode_HandAssembled(t *testing.T) {
	// 9-bit codes 65 66 258 65 257 packed big-endian: "ABABA"
	data := []byte{0x20, 0x90, 0xA0, 0x44, 0x18, 0x08}
	assert.Equal(t, []byte("ABABA"), lzwDecode(data, true))
	assert.Equal(t, []byte("ABABA"), lzwDecode(data, false))
}

func TestPNGPredictor_Up(t *testing.T) {
	// two rows of three columns, each filtered with Up
	data := []byte{
		2, 1, 2, 3,
		2, 4, 3, 2,
	}
	p := dict{"Predictor": int64(12), "Columns": int64(3)}
	out, err := applyPredictor(data, p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 5, 5}, out)
}

func TestPNGPredictor_Sub(t *testing.T) {
	data := []byte{1, 1, 1, 1}
	p := dict{"Predictor": int64(15), "Columns": int64(3)}
	out, err := applyPredictor(data, p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)
}

func TestPNGPredictor_Paeth(t *testing.T) {
	data := []byte{
		4, 10, 20, 30,
		4, 1, 1, 1,
	}
	p := dict{"Predictor": int64(15), "Columns": int64(3)}
	out, err := applyPredictor(data, p)
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, []byte{10, 30, 60}, out[:3])
}

func TestPNGPredictor_ZeroColumnsNoOp(t *testing.T) {
	data := []byte{9, 9, 9}
	p := dict{"Predictor": int64(12), "Columns": int64(0)}
	out, err := applyPredictor(data, p)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestStdInflate_StrictAndRelaxed(t *testing.T) {
	plain := []byte("inflate me, twice if needed")
	packed := zlibCompress(t, plain)

	out, err := stdInflate(packed)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	// chop the Adler32 trailer; the relaxed path still yields the data
	out, err = stdInflate(packed[:len(packed)-4])
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecodeStream_FilterChain(t *testing.T) {
	d := &Document{prims: StdPrimitives()}
	plain := []byte("chained payload")
	packed := zlibCompress(t, plain)

	hdr := dict{"Filter": name("FlateDecode")}
	out, err := d.decodeStream(packed, hdr)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecodeStream_UnknownFilterPassesThrough(t *testing.T) {
	d := &Document{prims: StdPrimitives()}
	hdr := dict{"Filter": name("DCTDecode")}
	out, err := d.decodeStream([]byte{1, 2, 3}, hdr)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)
}

func TestDecodeStream_FilterArray(t *testing.T) {
	d := &Document{prims: StdPrimitives()}
	plain := []byte("two stage")
	packed := zlibCompress(t, plain)

	// hex-encode the zlib payload, then declare [AHx Fl]
	var hex bytes.Buffer
	const digits = "0123456789ABCDEF"
	for _, c := range packed {
		hex.WriteByte(digits[c>>4])
		hex.WriteByte(digits[c&0xF])
	}
	hex.WriteByte('>')

	hdr := dict{"Filter": array{name("ASCIIHexDecode"), name("FlateDecode")}}
	out, err := d.decodeStream(hex.Bytes(), hdr)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecodeStream_BadFlateIsParseError(t *testing.T) {
	d := &Document{prims: StdPrimitives()}
	hdr := dict{"Filter": name("FlateDecode")}
	_, err := d.decodeStream([]byte{0xFF, 0x00, 0x01}, hdr)
	assert.Error(t, err)
}
