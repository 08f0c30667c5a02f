// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tracer

import (
	"fmt"
)

// maxMessages bounds the trace buffer; pathological documents can emit
// millions of trace lines otherwise.
const maxMessages = 100000

var (
	traceMessages []string
	dropped       int
)

// Log adds a message to the trace log.
func Log(msg string) {
	if len(traceMessages) >= maxMessages {
		dropped++
		return
	}
	traceMessages = append(traceMessages, msg)
}

// Flush prints the accumulated trace log and resets it.
func Flush() {
	for _, msg := range traceMessages {
		fmt.Println(msg)
	}
	if dropped > 0 {
		fmt.Printf("(trace truncated, %d messages dropped)\n", dropped)
	}
	// reset so the next run starts fresh
	traceMessages = nil
	dropped = 0
}
