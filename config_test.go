// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, BestEffort, cfg.ParsingMode)
}

func TestConfig_Invalid(t *testing.T) {
	cases := map[string]func(*Config){
		"too many concurrent": func(c *Config) { c.MaxConcurrentPDFs = 99 },
		"zero workers":        func(c *Config) { c.MaxWorkersPerPDF = 0 },
		"bad mode":            func(c *Config) { c.ParsingMode = "yolo" },
		"negative retries":    func(c *Config) { c.MaxRetries = -1 },
		"missing timeout":     func(c *Config) { c.WorkerTimeout = 0 },
	}
	for label, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), label)
	}
}

func TestConfig_ValidCustom(t *testing.T) {
	cfg := &Config{
		MaxConcurrentPDFs: 2,
		MaxWorkersPerPDF:  4,
		WorkerTimeout:     time.Second,
		ParsingMode:       Strict,
		MaxRetries:        1,
		MaxTotalChars:     1000,
	}
	require.NoError(t, cfg.Validate())
}

func TestDefaultLoadOptions(t *testing.T) {
	o := DefaultLoadOptions()
	assert.Equal(t, "\n\n", o.PageSeparator)
	assert.True(t, o.StripFormPlaceholders)
	assert.False(t, o.IncludeInvisibleText)
	assert.NotNil(t, o.Primitives.Inflate)
	assert.NotNil(t, o.Primitives.MD5)
	assert.NotNil(t, o.Primitives.AESCBCDecrypt)
}

func TestNormalizeOptions(t *testing.T) {
	o := normalizeOptions(nil)
	assert.Equal(t, "\n\n", o.PageSeparator)
	assert.NotNil(t, o.Primitives.Inflate)

	custom := &LoadOptions{PageSeparator: "---"}
	o = normalizeOptions(custom)
	assert.Equal(t, "---", o.PageSeparator)
	assert.NotNil(t, o.Primitives.Inflate, "zero primitives are replaced by the std set")
}
