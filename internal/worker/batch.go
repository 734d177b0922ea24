package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jurimetrics/sentenza/internal/model"
)

// Analyzer runs the full analysis for one judgment URL
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) (*model.Analysis, error)
}

// AnalyzeJob analyzes one judgment URL, pacing itself against the shared
// per-domain limiter when one is set.
type AnalyzeJob struct {
	URL      string
	Analyzer Analyzer
	Limiter  *Limiter
	Delay    time.Duration
}

// Execute runs the job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.WaitWithDelay(ctx, j.URL, j.Delay); err != nil {
			return &AnalyzeResult{URL: j.URL, Error: err}
		}
	}

	analysis, err := j.Analyzer.AnalyzeURL(ctx, j.URL)
	if err != nil {
		return &AnalyzeResult{URL: j.URL, Error: err}
	}
	return &AnalyzeResult{URL: j.URL, Analysis: analysis}
}

// AnalyzeResult is the outcome of one judgment analysis
type AnalyzeResult struct {
	URL      string
	Analysis *model.Analysis
	Error    error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// Retryable reports whether the failure is transient and the URL is worth
// reprocessing in a later run. Backend outages, rate limiting and server
// errors qualify; parse and validation failures do not.
func (r *AnalyzeResult) Retryable() bool {
	if r.Error == nil {
		return false
	}
	if errors.Is(r.Error, model.ErrCapabilityUnavailable) || errors.Is(r.Error, model.ErrRateLimited) {
		return true
	}
	msg := r.Error.Error()
	return strings.Contains(msg, "unexpected status: 5") ||
		strings.Contains(msg, "unexpected status: 429")
}

// BatchProcessor analyzes many judgment URLs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
	delay       time.Duration
}

// NewBatchProcessor creates a batch processor. With perDomainRate above
// zero, requests against any one domain are limited to that many per
// second and spaced by delay.
func NewBatchProcessor(analyzer Analyzer, concurrency int, perDomainRate float64, delay time.Duration) *BatchProcessor {
	var limiter *Limiter
	if perDomainRate > 0 {
		limiter = NewLimiter(perDomainRate, 1)
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		limiter:     limiter,
		delay:       delay,
	}
}

// ProcessURLs analyzes the given URLs concurrently. One result is
// returned per URL, in completion order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*AnalyzeResult {
	if len(urls) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, url := range urls {
		pool.Submit(&AnalyzeJob{
			URL:      url,
			Analyzer: b.analyzer,
			Limiter:  b.limiter,
			Delay:    b.delay,
		})
	}

	results := pool.Wait()

	analyzeResults := make([]*AnalyzeResult, len(results))
	for i, result := range results {
		analyzeResults[i] = result.(*AnalyzeResult)
	}

	return analyzeResults
}

// ProcessFile reads judgment URLs from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Blank lines and
// "#" comments are skipped; duplicates keep their first position.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
