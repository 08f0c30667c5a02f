// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"fmt"
	"io"
)

// Primitives are the host-provided decompression and crypto callables the
// reader is parameterised by. The core never links a specific library: it
// calls whatever is injected here. All three must be pure and free of side
// effects.
//
// A Primitives value with every field nil is replaced by StdPrimitives at
// load time. When only some fields are set, the nil ones stay nil: a nil
// Inflate makes Flate streams pass through undecoded, and a nil MD5 or
// AESCBCDecrypt makes encrypted documents fail with an UnsupportedError
// instead of being decrypted.
type Primitives struct {
	// Inflate decompresses a zlib/deflate payload.
	Inflate func(data []byte) ([]byte, error)
	// MD5 computes the 16-byte MD5 digest.
	MD5 func(data []byte) [16]byte
	// AESCBCDecrypt decrypts AES-CBC data with the given key and IV and
	// strips PKCS#7 padding.
	AESCBCDecrypt func(key, iv, data []byte) ([]byte, error)
}

// StdPrimitives returns the standard-library-backed primitive set. This is
// the default wiring for LoadOptions.
func StdPrimitives() Primitives {
	return Primitives{
		Inflate:       stdInflate,
		MD5:           md5.Sum,
		AESCBCDecrypt: stdAESCBCDecrypt,
	}
}

// stdInflate tries strict zlib first and falls back to a relaxed read:
// raw deflate with the 2-byte zlib header skipped and truncated trailers
// tolerated. Real-world producers emit streams missing the Adler32
// trailer, and those still carry usable data.
func stdInflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		out, rerr := io.ReadAll(zr)
		zr.Close()
		if rerr == nil {
			return out, nil
		}
		if len(out) > 0 && (rerr == io.ErrUnexpectedEOF || rerr == io.EOF) {
			return out, nil
		}
	}

	body := data
	if len(body) >= 2 && body[0]&0x0f == 8 {
		body = body[2:]
	}
	fr := flate.NewReader(bytes.NewReader(body))
	out, rerr := io.ReadAll(fr)
	fr.Close()
	if rerr != nil && len(out) == 0 {
		return nil, fmt.Errorf("inflate: %w", rerr)
	}
	return out, nil
}

func stdAESCBCDecrypt(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("aes-cbc: bad IV length %d", len(iv))
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes-cbc: ciphertext is not a multiple of the block size")
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return unpadPKCS7(plain)
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return data, nil // tolerate missing padding
	}
	for i := len(data) - pad; i < len(data); i++ {
		if data[i] != byte(pad) {
			return data, nil
		}
	}
	return data[:len(data)-pad], nil
}
