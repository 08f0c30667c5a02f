// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPerms = -44 // typical /P: print and copy allowed, modify and annotate denied

var testFileID = []byte("0123456789ABCDEF")

func testOwnerHash() []byte {
	o := make([]byte, 32)
	for i := range o {
		o[i] = byte(i + 1)
	}
	return o
}

// deriveTestKey mirrors Algorithm 2 with the empty user password for
// R>=3 and a 16-byte key.
func deriveTestKey(o []byte, encryptMetadata bool, r int) []byte {
	pi := int32(testPerms)
	p := uint32(pi)
	h := md5.New()
	h.Write(passwordPad)
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(testFileID)
	if r >= 4 && !encryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := h.Sum(nil)[:16]
	for i := 0; i < 50; i++ {
		sum := md5.Sum(key)
		key = sum[:16]
	}
	out := make([]byte, 16)
	copy(out, key)
	return out
}

// computeTestU mirrors the R>=3 /U derivation.
func computeTestU(key []byte) []byte {
	h := md5.New()
	h.Write(passwordPad)
	h.Write(testFileID)
	enc := rc4Encrypt(key, h.Sum(nil))
	round := make([]byte, len(key))
	for i := 1; i <= 19; i++ {
		for j := range key {
			round[j] = key[j] ^ byte(i)
		}
		enc = rc4Encrypt(round, enc)
	}
	u := make([]byte, 32)
	copy(u, enc)
	return u
}

func rc4Encrypt(key, data []byte) []byte {
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

func objectKeyFor(fileKey []byte, num uint32, gen uint16, aesMode bool) []byte {
	h := md5.New()
	h.Write(fileKey)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16)})
	h.Write([]byte{byte(gen), byte(gen >> 8)})
	if aesMode {
		h.Write([]byte("sAlT"))
	}
	return h.Sum(nil)[:16]
}

func hexOf(b []byte) string {
	var sb bytes.Buffer
	for _, c := range b {
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

func buildEncryptedPDF(t *testing.T, useAES bool, corruptU bool) []byte {
	t.Helper()
	o := testOwnerHash()
	r := 3
	if useAES {
		r = 4
	}
	key := deriveTestKey(o, true, r)
	u := computeTestU(key)
	if corruptU {
		u[0] ^= 0xA5
	}

	content := []byte("BT /F1 12 Tf 72 720 Td (Top secret text) Tj ET")
	objKey := objectKeyFor(key, 4, 0, useAES)
	var payload []byte
	if useAES {
		iv := bytes.Repeat([]byte{0x42}, 16)
		block, err := aes.NewCipher(objKey)
		require.NoError(t, err)
		pad := 16 - len(content)%16
		padded := append(append([]byte{}, content...), bytes.Repeat([]byte{byte(pad)}, pad)...)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		payload = append(iv, out...)
	} else {
		payload = rc4Encrypt(objKey, content)
	}

	b := newPDF()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	b.streamObj(4, "", payload)
	b.obj(5, helveticaFont)
	if useAES {
		b.obj(6, fmt.Sprintf(
			"<< /Filter /Standard /V 4 /R 4 /Length 128 /P %d /O <%s> /U <%s> /CF << /StdCF << /CFM /AESV2 >> >> /StmF /StdCF /StrF /StdCF >>",
			testPerms, hexOf(o), hexOf(u)))
	} else {
		b.obj(6, fmt.Sprintf(
			"<< /Filter /Standard /V 2 /R 3 /Length 128 /P %d /O <%s> /U <%s> >>",
			testPerms, hexOf(o), hexOf(u)))
	}
	b.extra = fmt.Sprintf("/Encrypt 6 0 R /ID [<%s> <%s>]", hexOf(testFileID), hexOf(testFileID))
	return b.bytes()
}

func TestEncrypted_RC4EmptyPassword(t *testing.T) {
	doc, err := mustLoad(buildEncryptedPDF(t, false, false))
	require.NoError(t, err)
	defer doc.Close()

	assert.Contains(t, doc.Text(), "Top secret text")
}

func TestEncrypted_AES128EmptyPassword(t *testing.T) {
	doc, err := mustLoad(buildEncryptedPDF(t, true, false))
	require.NoError(t, err)
	defer doc.Close()

	assert.Contains(t, doc.Text(), "Top secret text")
}

func TestEncrypted_PasswordProtected(t *testing.T) {
	_, err := mustLoad(buildEncryptedPDF(t, false, true))
	require.Error(t, err)

	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe), "must not be a parse error")
}

func TestEncrypted_MissingID(t *testing.T) {
	data := buildEncryptedPDF(t, false, false)
	// drop the /ID entry from the trailer
	data = bytes.Replace(data, []byte("/ID [<"+hexOf(testFileID)+"> <"+hexOf(testFileID)+">]"), []byte(""), 1)

	_, err := mustLoad(data)
	require.Error(t, err)
	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestEncrypted_V5Unsupported(t *testing.T) {
	data := buildEncryptedPDF(t, false, false)
	data = bytes.Replace(data, []byte("/V 2 /R 3"), []byte("/V 5 /R 6"), 1)

	_, err := mustLoad(data)
	require.Error(t, err)
	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestEncrypted_NoPrimitives(t *testing.T) {
	opts := DefaultLoadOptions()
	opts.Primitives = Primitives{Inflate: stdInflate} // crypto callables unset
	_, err := Load(buildEncryptedPDF(t, false, false), &opts)
	require.Error(t, err)
	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestObjectKey_Truncation(t *testing.T) {
	cs := &cryptState{prims: StdPrimitives(), key: bytes.Repeat([]byte{7}, 5), keyLen: 5, r: 2}
	// 40-bit key: object key is min(5+5, 16) = 10 bytes
	assert.Len(t, cs.objectKey(objptr{1, 0}), 10)

	cs = &cryptState{prims: StdPrimitives(), key: bytes.Repeat([]byte{7}, 16), keyLen: 16, r: 4}
	assert.Len(t, cs.objectKey(objptr{1, 0}), 16)
}

func TestCryptState_DecryptDamagedAESKeepsBytes(t *testing.T) {
	cs := &cryptState{prims: StdPrimitives(), key: bytes.Repeat([]byte{7}, 16), keyLen: 16, r: 4, useAES: true}
	short := []byte{1, 2, 3}
	assert.Equal(t, short, cs.decrypt(objptr{1, 0}, short))
}
