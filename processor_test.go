// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processorPDF() []byte {
	b := newPDF()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 7 0 R >> >> /Contents 5 0 R >>")
	b.obj(4, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 7 0 R >> >> /Contents 6 0 R >>")
	b.streamObj(5, "", []byte("BT /F1 12 Tf 72 720 Td (alpha page) Tj ET"))
	b.streamObj(6, "", []byte("BT /F1 12 Tf 72 720 Td (beta page) Tj ET"))
	b.obj(7, helveticaFont)
	return b.bytes()
}

func newTestProcessor(mutate func(*Config)) *processor {
	cfg := NewDefaultConfig()
	cfg.Load = DefaultLoadOptions()
	if mutate != nil {
		mutate(cfg)
	}
	return NewProcessor(cfg)
}

func TestProcessor_ExtractInOrder(t *testing.T) {
	p := newTestProcessor(func(c *Config) { c.MaxWorkersPerPDF = 4 })

	text, truncated, err := p.Extract(context.Background(), processorPDF())
	require.NoError(t, err)
	assert.False(t, truncated)

	iA := bytes.Index([]byte(text), []byte("alpha page"))
	iB := bytes.Index([]byte(text), []byte("beta page"))
	require.True(t, iA >= 0 && iB >= 0, "both pages present: %q", text)
	assert.Less(t, iA, iB)
}

func TestProcessor_Truncation(t *testing.T) {
	p := newTestProcessor(func(c *Config) { c.MaxTotalChars = 5 })

	text, truncated, err := p.Extract(context.Background(), processorPDF())
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(text), 5)
}

func TestProcessor_StrictFailsOnBadDocument(t *testing.T) {
	p := newTestProcessor(func(c *Config) { c.ParsingMode = Strict })

	_, _, err := p.Extract(context.Background(), []byte("not a pdf at all"))
	assert.Error(t, err)
}

func TestProcessor_BestEffortEmptyInput(t *testing.T) {
	p := newTestProcessor(nil)
	_, _, err := p.Extract(context.Background(), nil)
	assert.Error(t, err)
}

func TestProcessor_ContextCancelled(t *testing.T) {
	p := newTestProcessor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := p.Extract(ctx, processorPDF())
	assert.Error(t, err)
}

func TestProcessor_InvalidConfigPanics(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxConcurrentPDFs = 0
	assert.Panics(t, func() { NewProcessor(cfg) })
}

func TestProcessor_ExtractAsStream(t *testing.T) {
	p := newTestProcessor(nil)

	ch, err := p.ExtractAsStream(context.Background(), processorPDF())
	require.NoError(t, err)

	var pages []string
	for text := range ch {
		pages = append(pages, text)
	}
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "alpha page")
	assert.Contains(t, pages[1], "beta page")
}

func TestProcessor_ExtractAsStreamTruncates(t *testing.T) {
	p := newTestProcessor(func(c *Config) { c.MaxTotalChars = 5 })

	ch, err := p.ExtractAsStream(context.Background(), processorPDF())
	require.NoError(t, err)

	total := 0
	for text := range ch {
		total += len(text)
	}
	assert.LessOrEqual(t, total, 5)
}

func TestProcessor_Metadata(t *testing.T) {
	p := newTestProcessor(nil)

	b := singlePage("BT /F1 12 Tf 72 720 Td (x) Tj ET", helveticaFont)
	b.obj(6, "<< /Title (Processed) >>")
	b.extra = "/Info 6 0 R"

	var buf bytes.Buffer
	require.NoError(t, p.Metadata(context.Background(), b.bytes(), &buf))

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "Processed", m["title"])
}
