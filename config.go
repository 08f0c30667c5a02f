// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/barryking/extractly/logger"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

// Config tunes the batch Processor.
type Config struct {
	MaxConcurrentPDFs int           `validate:"min=1,max=10"`
	MaxWorkersPerPDF  int           `validate:"min=1,max=10"`
	WorkerTimeout     time.Duration `validate:"required"`
	ParsingMode       ParsingMode   `validate:"oneof=strict best-effort"`
	MaxRetries        int           `validate:"min=0,max=3"`
	MaxTotalChars     int           `validate:"min=0"`
	Logger            logger.LogFunc
	Load              LoadOptions
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentPDFs: 5,
		MaxWorkersPerPDF:  1,
		WorkerTimeout:     5 * time.Second,
		ParsingMode:       BestEffort,
		MaxRetries:        3,
		MaxTotalChars:     0,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// LoadOptions configure a single document load.
type LoadOptions struct {
	// PageSeparator joins page texts in Document.Text. Default "\n\n".
	PageSeparator string
	// StripFormPlaceholders removes DocuSign/IIO anchor tokens from
	// assembled text. Default true.
	StripFormPlaceholders bool
	// IncludeInvisibleText keeps runs drawn with render mode 3.
	// Default false.
	IncludeInvisibleText bool
	// Password is reserved; only the empty password is supported.
	Password string
	// Primitives are the injected decompression and crypto callables.
	// The zero value is replaced by StdPrimitives.
	Primitives Primitives
}

// DefaultLoadOptions returns the options used when Load is given nil.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		PageSeparator:         "\n\n",
		StripFormPlaceholders: true,
		Primitives:            StdPrimitives(),
	}
}

func normalizeOptions(opts *LoadOptions) LoadOptions {
	if opts == nil {
		return DefaultLoadOptions()
	}
	o := *opts
	if o.PageSeparator == "" {
		o.PageSeparator = "\n\n"
	}
	if o.Primitives.Inflate == nil && o.Primitives.MD5 == nil && o.Primitives.AESCBCDecrypt == nil {
		o.Primitives = StdPrimitives()
	}
	return o
}
