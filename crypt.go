// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Standard security handler: empty-password key derivation and per-object
// RC4 / AES-128 decryption of strings and stream payloads.

package extractly

import (
	"bytes"
	"crypto/rc4"
	"fmt"

	"github.com/barryking/extractly/logger"
)

// passwordPad is the fixed 32-byte padding string from ISO 32000-1
// Algorithm 2.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// cryptState holds the file encryption key and cipher selection derived
// once per document.
type cryptState struct {
	prims           Primitives
	key             []byte
	keyLen          int
	v, r            int
	useAES          bool
	encryptMetadata bool
}

// setupEncryption validates the /Encrypt dictionary, requires /ID, and
// attempts the empty-password unlock. Anything beyond the Standard filter
// with V1–V4 / R2–R4 is unsupported, as is a non-empty password.
func (d *Document) setupEncryption(encObj object) error {
	enc, ok := d.resolve(objptr{}, encObj).data.(dict)
	if !ok {
		return &ParseError{Message: "/Encrypt is not a dictionary", Offset: -1}
	}

	if filter, _ := enc["Filter"].(name); filter != "Standard" {
		return unsupportedf("security filter %q", string(filter))
	}

	v := int(dictInt(enc, "V", 0))
	r := int(dictInt(enc, "R", 0))
	if v < 1 || v > 4 {
		return unsupportedf("encryption V=%d", v)
	}
	if r < 2 || r > 4 {
		return unsupportedf("encryption revision R=%d", r)
	}

	if d.prims.MD5 == nil || d.prims.AESCBCDecrypt == nil {
		return unsupportedf("encrypted PDF but crypto primitives unavailable")
	}

	o, _ := enc["O"].(string)
	u, _ := enc["U"].(string)
	if len(o) < 32 || len(u) < 32 {
		return &ParseError{Message: "/Encrypt missing O or U entries", Offset: -1}
	}
	p := uint32(dictInt(enc, "P", 0))

	keyLen := 5 // /Length in bits, default 40
	if bits := dictInt(enc, "Length", 40); bits >= 40 && bits <= 128 && bits%8 == 0 {
		keyLen = int(bits) / 8
	}
	if r == 2 {
		keyLen = 5
	}

	ids, _ := d.trailer["ID"].(array)
	if len(ids) == 0 {
		return unsupportedf("encrypted PDF missing /ID")
	}
	fileID, ok := ids[0].(string)
	if !ok {
		return unsupportedf("encrypted PDF missing /ID")
	}

	encryptMetadata := true
	if em, ok := enc["EncryptMetadata"].(bool); ok {
		encryptMetadata = em
	}

	useAES := false
	if v == 4 {
		cf, _ := enc["CF"].(dict)
		stmf, _ := enc["StmF"].(name)
		if stmf == "" {
			stmf = "StdCF"
		}
		if cfd, ok := cf[stmf].(dict); ok {
			if cfm, _ := cfd["CFM"].(name); cfm == "AESV2" {
				useAES = true
			} else if cfm == "AESV3" {
				return unsupportedf("AES-256 encryption")
			}
		}
	}

	cs := &cryptState{
		prims:           d.prims,
		keyLen:          keyLen,
		v:               v,
		r:               r,
		useAES:          useAES,
		encryptMetadata: encryptMetadata,
	}
	cs.key = cs.deriveKey(nil, []byte(o), p, []byte(fileID))

	if !cs.verifyEmptyPassword([]byte(u), []byte(fileID)) {
		return unsupportedf("encrypted PDF requires a password")
	}

	d.crypt = cs
	logger.Debug(fmt.Sprintf("crypt: unlocked V=%d R=%d keylen=%d aes=%v", v, r, keyLen*8, useAES), true)
	return nil
}

func dictInt(x dict, key string, def int64) int64 {
	if v, ok := x[name(key)].(int64); ok {
		return v
	}
	return def
}

// deriveKey implements Algorithm 2: pad the password, hash it with O, P,
// and the file ID, then for R>=3 re-hash the leading key bytes 50 times.
func (c *cryptState) deriveKey(password, o []byte, p uint32, fileID []byte) []byte {
	buf := make([]byte, 0, 32+len(o)+4+len(fileID)+4)
	if len(password) >= 32 {
		buf = append(buf, password[:32]...)
	} else {
		buf = append(buf, password...)
		buf = append(buf, passwordPad[:32-len(password)]...)
	}
	buf = append(buf, o[:32]...)
	buf = append(buf, byte(p), byte(p>>8), byte(p>>16), byte(p>>24))
	buf = append(buf, fileID...)
	if c.r >= 4 && !c.encryptMetadata {
		buf = append(buf, 0xFF, 0xFF, 0xFF, 0xFF)
	}

	sum := c.prims.MD5(buf)
	key := sum[:c.keyLen]
	if c.r >= 3 {
		for i := 0; i < 50; i++ {
			sum = c.prims.MD5(key)
			key = sum[:c.keyLen]
		}
	}
	out := make([]byte, c.keyLen)
	copy(out, key)
	return out
}

// verifyEmptyPassword checks the derived key against /U: for R2 the
// RC4-encrypted padding string, for R>=3 the 19-round variant over
// MD5(padding || fileID), compared on the first 16 bytes.
func (c *cryptState) verifyEmptyPassword(u, fileID []byte) bool {
	if c.r == 2 {
		enc := rc4Apply(c.key, passwordPad)
		return bytes.Equal(enc, u[:32])
	}

	sum := c.prims.MD5(append(append([]byte{}, passwordPad...), fileID...))
	enc := rc4Apply(c.key, sum[:])
	round := make([]byte, len(c.key))
	for i := 1; i <= 19; i++ {
		for j := range c.key {
			round[j] = c.key[j] ^ byte(i)
		}
		enc = rc4Apply(round, enc)
	}
	return bytes.Equal(enc[:16], u[:16])
}

// objectKey implements Algorithm 1: MD5 of the file key, the low bytes of
// the object and generation numbers, and the AES salt, truncated to
// min(keyLen+5, 16).
func (c *cryptState) objectKey(ptr objptr) []byte {
	buf := make([]byte, 0, len(c.key)+9)
	buf = append(buf, c.key...)
	buf = append(buf, byte(ptr.id), byte(ptr.id>>8), byte(ptr.id>>16))
	buf = append(buf, byte(ptr.gen), byte(ptr.gen>>8))
	if c.useAES {
		buf = append(buf, 's', 'A', 'l', 'T')
	}
	sum := c.prims.MD5(buf)
	n := c.keyLen + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

// decrypt decrypts a string or stream payload for the given object. AES
// payloads carry a 16-byte IV prefix; RC4 is a plain XOR stream. Damaged
// ciphertext degrades to the raw bytes rather than failing the document.
func (c *cryptState) decrypt(ptr objptr, data []byte) []byte {
	if c == nil || ptr.id == 0 || len(data) == 0 {
		return data
	}
	key := c.objectKey(ptr)
	if c.useAES {
		if len(data) < 16 {
			return data
		}
		plain, err := c.prims.AESCBCDecrypt(key, data[:16], data[16:])
		if err != nil {
			logger.Debug(fmt.Sprintf("crypt: aes decrypt of %d %d failed: %v", ptr.id, ptr.gen, err))
			return data
		}
		return plain
	}
	return rc4Apply(key, data)
}

func rc4Apply(key, data []byte) []byte {
	ci, err := rc4.NewCipher(key)
	if err != nil {
		return data
	}
	out := make([]byte, len(data))
	ci.XORKeyStream(out, data)
	return out
}
