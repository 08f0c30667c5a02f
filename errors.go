// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import "fmt"

// A ParseError reports PDF structure damage beyond what the recovery
// machinery can repair: an unreadable cross-reference chain with a failed
// object scan, a missing /Root, an undecodable stream.
type ParseError struct {
	Message string
	Offset  int64 // byte offset into the document, or -1 when unknown
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed PDF at offset %d: %s", e.Offset, e.Message)
	}
	return "malformed PDF: " + e.Message
}

func parseErrorf(offset int64, format string, args ...interface{}) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Offset: offset}
}

// An UnsupportedError reports a well-formed PDF that requires a feature
// outside this reader's scope, such as a non-empty password, an AES-256
// security handler, or a non-Standard encryption filter.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string {
	return "unsupported PDF: " + e.Message
}

func unsupportedf(format string, args ...interface{}) *UnsupportedError {
	return &UnsupportedError{Message: fmt.Sprintf(format, args...)}
}
