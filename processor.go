// Copyright © 2026, Extractly Authors. All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package extractly

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/barryking/extractly/logger"
)

// Processor defines the contract for extracting text from PDF bytes.
type Processor interface {
	Extract(ctx context.Context, data []byte) (string, bool, error)
}

// ExtractorStrategy defines how to extract text from a single page.
// Different strategies handle errors differently (strict vs. best-effort).
type ExtractorStrategy interface {
	ExtractPage(ctx context.Context, page *Page) (string, error)
}

// StrictExtractor enforces strict parsing.
// If any page fails, the entire extraction fails.
type StrictExtractor struct{}

func (s *StrictExtractor) ExtractPage(ctx context.Context, page *Page) (string, error) {
	text := page.Text()
	if err := page.Err(); err != nil {
		return "", err
	}
	return text, nil
}

// BestEffortExtractor tolerates errors.
// If a page fails, it simply skips that page.
type BestEffortExtractor struct{}

func (b *BestEffortExtractor) ExtractPage(ctx context.Context, page *Page) (string, error) {
	text := page.Text()
	if err := page.Err(); err != nil {
		logger.Debug(fmt.Sprintf("BestEffortExtractor: failed to extract page text, ignoring error: %v", err), true)
		return "", nil
	}
	return text, nil
}

// processor manages PDF extraction with concurrency control
// and delegates page-level work to the chosen ExtractorStrategy.
type processor struct {
	cfg       *Config
	sem       *semaphore.Weighted
	extractor ExtractorStrategy
}

// NewProcessor validates the config and creates a new processor.
// Selects the correct ExtractorStrategy (Strict or BestEffort).
func NewProcessor(cfg *Config) *processor {
	var extractor ExtractorStrategy
	switch cfg.ParsingMode {
	case Strict:
		extractor = &StrictExtractor{}
	case BestEffort:
		extractor = &BestEffortExtractor{}
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	logger.Debug(fmt.Sprintf("Processor initialized: parsing_mode=%v, max_concurrent_pdfs=%d, max_workers_per_pdf=%d",
		cfg.ParsingMode, cfg.MaxConcurrentPDFs, cfg.MaxWorkersPerPDF), true)

	return &processor{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentPDFs)),
		extractor: extractor,
	}
}

// Extract extracts the PDF's text in page order, respecting
// Config.MaxTotalChars as a limit. Returns the text and a truncated flag
// when the output hits the character limit.
func (p *processor) Extract(ctx context.Context, data []byte) (string, bool, error) {
	if err := p.acquireSlot(ctx); err != nil {
		return "", false, err
	}
	defer p.sem.Release(1)

	opts := p.cfg.Load
	doc, err := Load(data, &opts)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to load PDF: err=%v", err), true)
		return "", false, err
	}
	defer doc.Close()

	total := doc.NumPage()
	logger.Debug(fmt.Sprintf("Total pages detected: pages=%d", total), true)
	if total == 0 {
		return "", false, nil
	}

	numWorkers := p.adjustWorkerCount(p.cfg.MaxWorkersPerPDF)
	jobs, results := make(chan int, total), make(chan pageResult, total)

	// the document's object cache is single-threaded; workers serialize
	// around actual page extraction and overlap only on queue handling
	var mu sync.Mutex

	var wg sync.WaitGroup
	p.startWorkers(ctx, doc, &mu, jobs, results, numWorkers, &wg)
	if err := p.feedJobs(ctx, total, jobs); err != nil {
		close(jobs)
		return "", false, err
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out, truncated, err := p.emitInOrder(results)
	if err != nil {
		return "", false, err
	}
	logger.Debug(fmt.Sprintf("Extraction completed: truncated=%v total_chars=%d", truncated, out.Len()), true)
	return out.String(), truncated, nil
}

// ExtractAsStream streams the PDF's text page by page, in order,
// respecting Config.MaxTotalChars. The channel closes when the document
// is exhausted or the limit is hit.
func (p *processor) ExtractAsStream(ctx context.Context, data []byte) (<-chan string, error) {
	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}

	opts := p.cfg.Load
	doc, err := Load(data, &opts)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	outCh := make(chan string)
	go func() {
		defer close(outCh)
		defer p.sem.Release(1)
		defer doc.Close()

		total := 0
		for i := 1; i <= doc.NumPage(); i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			text, err := p.extractor.ExtractPage(ctx, doc.Page(i))
			if err != nil {
				logger.Debug(fmt.Sprintf("Streaming: stopping on page %d: %v", i, err), true)
				return
			}
			if text == "" {
				continue
			}
			if p.cfg.MaxTotalChars > 0 {
				remaining := p.cfg.MaxTotalChars - total
				if remaining <= 0 {
					return
				}
				if len(text) > remaining {
					text = text[:remaining]
				}
			}
			select {
			case outCh <- text:
				total += len(text)
			case <-ctx.Done():
				return
			}
		}
	}()
	return outCh, nil
}

// ExtractFile is the path-based convenience variant of Extract.
func (p *processor) ExtractFile(ctx context.Context, path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	return p.Extract(ctx, data)
}

func (p *processor) emitInOrder(results chan pageResult) (strings.Builder, bool, error) {
	pageBuffer := make(map[int]string)
	nextPage := 1
	var out strings.Builder
	truncated := false
	for res := range results {
		if res.err != nil && p.cfg.ParsingMode == Strict {
			logger.Debug(fmt.Sprintf("Strict mode error — stopping extraction: page=%d err=%v", res.index, res.err))
			return out, false, fmt.Errorf("strict mode failed on page %d: %w", res.index, res.err)
		}
		pageBuffer[res.index] = res.text

		for {
			text, ok := pageBuffer[nextPage]
			if !ok {
				break
			}
			if text != "" {
				if out.Len() > 0 {
					out.WriteString(p.cfg.Load.PageSeparator)
				}
				if p.cfg.MaxTotalChars > 0 {
					remaining := p.cfg.MaxTotalChars - out.Len()
					if remaining <= 0 {
						truncated = true
						break
					}
					if len(text) > remaining {
						out.WriteString(text[:remaining])
						truncated = true
					} else {
						out.WriteString(text)
					}
				} else {
					out.WriteString(text)
				}
			}
			delete(pageBuffer, nextPage)
			nextPage++
			if truncated {
				break
			}
		}
		if truncated {
			break
		}
	}
	return out, truncated, nil
}

func (p *processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	return nil
}

func (p *processor) adjustWorkerCount(maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if n := runtime.NumCPU(); maxWorkers > n {
		maxWorkers = n
	}
	return maxWorkers
}

type pageResult struct {
	index int
	text  string
	err   error
}

func (p *processor) startWorkers(ctx context.Context, doc *Document, mu *sync.Mutex, jobs <-chan int, results chan<- pageResult, numWorkers int, wg *sync.WaitGroup) {
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				page := doc.Page(i)
				if page == nil {
					results <- pageResult{i, "", fmt.Errorf("null page")}
					continue
				}
				text, err := p.extractPageWithRetries(ctx, page, mu)
				results <- pageResult{i, text, err}
			}
		}(w)
	}
}

func (p *processor) extractPageWithRetries(ctx context.Context, page *Page, mu *sync.Mutex) (string, error) {
	var text string
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		ctxPage, cancel := context.WithTimeout(ctx, p.cfg.WorkerTimeout)
		mu.Lock()
		text, err = p.extractor.ExtractPage(ctxPage, page)
		mu.Unlock()
		cancel()
		if err == nil {
			break
		}
		logger.Debug(fmt.Sprintf("Retrying page extraction: attempt=%d err=%v", attempt, err), true)
	}
	return text, err
}

func (p *processor) feedJobs(ctx context.Context, total int, jobs chan<- int) error {
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled while feeding jobs", true)
			return ctx.Err()
		case jobs <- i:
		}
	}
	return nil
}

// Metadata writes the PDF's metadata as JSON to w.
func (p *processor) Metadata(ctx context.Context, data []byte, w io.Writer) error {
	opts := p.cfg.Load
	doc, err := Load(data, &opts)
	if err != nil {
		return err
	}
	defer doc.Close()
	return doc.MetadataJSON(w)
}
