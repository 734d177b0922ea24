// Package pipeline wires the analysis stages for one judgment: normalize
// the markup, resolve the citation, classify the posture, extract draft
// records, resolve quanta, validate, then render and persist. Stages only
// consume the previous stage's output; records are immutable once the
// validator has finalized them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jurimetrics/sentenza/internal/cache"
	"github.com/jurimetrics/sentenza/internal/citation"
	"github.com/jurimetrics/sentenza/internal/classify"
	"github.com/jurimetrics/sentenza/internal/extract"
	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/quantum"
	"github.com/jurimetrics/sentenza/internal/storage"
	"github.com/jurimetrics/sentenza/internal/validate"
	"github.com/jurimetrics/sentenza/internal/vocab"
)

// retrySleepFunc is replaceable in tests to avoid real backoff delays
var retrySleepFunc = time.Sleep

const maxExtractAttempts = 3

// Pipeline orchestrates the complete analysis of one judgment
type Pipeline struct {
	fetcher    *Fetcher
	normalizer *markup.Normalizer
	classifier *classify.Classifier
	extractor  extract.Extractor
	resolver   *citation.Resolver
	validator  *validate.Validator
	renderer   *Renderer
	sessions   *SessionGuard
	store      storage.SentenceStore
	config     *model.Config
	log        *slog.Logger
}

// New creates a pipeline from configuration. The persistence sink is
// attached separately with AttachStore because it may need dialing.
func New(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	table := vocab.Default()
	extractor, err := extract.New(cfg.Extractor, table)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	fetcher := NewFetcher(
		cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.RespectRobots, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy,
	)
	if cfg.HTTP.RatePerHost > 0 {
		fetcher.RateLimit(cfg.HTTP.RatePerHost)
	}
	if cfg.HTTP.InsecureTLS {
		fetcher.AllowInsecureTLS()
	}

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = cache.DefaultDir()
		}
		pageCache = cache.NewLayeredCache(cfg.Cache.TTL, dir, cfg.Cache.TTL)
		fetcher.UseCache(pageCache, cfg.Cache.TTL)
	}

	var resolver *citation.Resolver
	if cfg.Resolver.Enabled {
		resolver = citation.NewResolver(cfg.Resolver, pageCache)
	}

	return &Pipeline{
		fetcher:    fetcher,
		normalizer: markup.NewNormalizer(),
		classifier: classify.NewClassifier(cfg.Classifier),
		extractor:  extractor,
		resolver:   resolver,
		validator:  validate.New(),
		renderer:   NewRenderer(cfg.Output.Pretty),
		sessions:   NewSessionGuard(),
		config:     cfg,
		log:        logger,
	}, nil
}

// AttachStore wires the persistence sink. Without one, analyses are
// rendered but never persisted.
func (p *Pipeline) AttachStore(store storage.SentenceStore) {
	p.store = store
}

// Renderer exposes the artifact renderer for callers that write output
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Input is one judgment handed to the pipeline
type Input struct {
	HTML       string
	SourceURL  string
	SourcePath string

	// CitationHint overrides citation detection from the header, for
	// markup that arrives without front matter.
	CitationHint string

	// Slug is a compact case id candidate taken from the source URL
	Slug string

	// Meta carries HTTP metadata when the judgment was fetched
	Meta *model.FetchMeta
}

// AnalyzeURL fetches one judgment and runs the full pipeline
func (p *Pipeline) AnalyzeURL(ctx context.Context, rawURL string) (*model.Analysis, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch judgment: %w", err)
	}
	return p.Analyze(ctx, Input{
		HTML:      result.HTML,
		SourceURL: result.FinalURL,
		Slug:      result.Slug,
		Meta:      &result.Meta,
	})
}

// AnalyzeFile reads a local judgment file and runs the full pipeline
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string, citationHint string) (*model.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read judgment: %w", err)
	}
	return p.Analyze(ctx, Input{
		HTML:         string(data),
		SourcePath:   path,
		CitationHint: citationHint,
	})
}

// Analyze runs all stages over one judgment. Records are only persisted
// when every stage completed and the context is still live.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*model.Analysis, error) {
	started := time.Now().UTC()

	// 1. Normalize markup into header and numbered paragraphs
	doc, err := p.normalizer.Normalize(in.HTML)
	if err != nil {
		return nil, fmt.Errorf("normalize markup: %w", err)
	}
	if doc.Empty {
		return nil, fmt.Errorf("%w: no extractable text", model.ErrInputEmpty)
	}

	// 2. Case identity from citation hint, header, or URL slug
	meta, err := p.caseMetadata(in, doc)
	if err != nil {
		return nil, err
	}
	if len(meta.Keywords) == 0 {
		meta.Keywords = doc.Header.Keywords
	}
	if meta.Language == "" {
		meta.Language = languageOf(meta.StyleOfCause)
	}

	// One analysis per case at a time
	release, err := p.sessions.Acquire(meta.CaseID)
	if err != nil {
		return nil, err
	}
	defer release()

	// 3. Citator lookup runs aside the main path and never blocks it
	citatorCh := p.lookupCitator(ctx, meta)

	// 4. Classify posture, then extract draft records
	cls := p.classifier.Classify(doc, meta.CourtLevel)

	analysis := &model.Analysis{
		SourceURL:      in.SourceURL,
		SourcePath:     in.SourcePath,
		FetchedAt:      started,
		FetchMeta:      in.Meta,
		Metadata:       meta,
		Classification: cls,
	}

	if cls.Sentencing && cls.Appeal == nil {
		p.log.Warn("posture unresolved", "case", meta.CaseID, "error", model.ErrClassificationUnresolved)
		analysis.Warnings = append(analysis.Warnings,
			"appellate posture unresolved; records held for review")
	}

	var records []model.SentencingRecord
	if cls.Sentencing {
		req := extract.Request{
			Metadata:       meta,
			Header:         doc.Header,
			Paragraphs:     doc.Paragraphs,
			Classification: cls,
		}
		resp, err := p.extractWithRetry(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("extract records: %w", err)
		}
		records = resp.Records
		analysis.Extractor = p.extractor.Name()
		if resp.Model != "" {
			analysis.Extractor += "/" + resp.Model
		}
	} else {
		analysis.Warnings = append(analysis.Warnings,
			"no sentencing language found; extraction skipped")
	}

	// 5. Resolve quanta in place; unresolved components are flagged by
	// the validator, never zeroed
	for i := range records {
		for j := range records[i].Sentence {
			c := &records[i].Sentence[j]
			if c.Raw == "" && c.Quantum == 0 && !c.Indeterminate {
				continue
			}
			if err := quantum.Resolve(c); err != nil {
				p.log.Debug("quantum unresolved",
					"case", meta.CaseID, "raw", c.Raw, "error", err)
			}
		}
	}

	// 6. Validate and finalize; timestamps are owned by the pipeline
	stopped := time.Now().UTC()
	for i := range records {
		records[i].TimeStarted = started
		records[i].TimeStopped = stopped
		p.validator.Finalize(&records[i], doc.Paragraphs)
		if records[i].Status == model.StatusPendingReview {
			p.log.Warn("record held for review",
				"case", meta.CaseID, "key", records[i].Key(), "error", model.ErrValidationFailed)
		}
	}
	analysis.Records = records
	analysis.Coverage = validate.Compute(records)
	if n := analysis.Coverage.PendingReview; n > 0 {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("%d of %d records pending human review", n, len(records)))
	}

	// Collect the citator result, if it arrived
	if citatorCh != nil {
		select {
		case res := <-citatorCh:
			analysis.Metadata = res.meta
			if res.rel != nil && !res.rel.Empty() {
				analysis.Relations = res.rel
			}
			if res.err != nil {
				analysis.Warnings = append(analysis.Warnings,
					"citator lookup degraded; metadata not enriched")
			}
		case <-ctx.Done():
		}
	}

	// 7. Cancellation discards drafts before anything is persisted
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	if p.store != nil && len(records) > 0 {
		if err := p.store.SaveRecords(ctx, records); err != nil {
			return nil, fmt.Errorf("persist records: %w", err)
		}
		p.log.Info("records persisted", "case", meta.CaseID, "records", len(records))
	}

	return analysis, nil
}

// extractWithRetry retries transient backend failures with exponential
// backoff. Anything else fails immediately.
func (p *Pipeline) extractWithRetry(ctx context.Context, req extract.Request) (*extract.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxExtractAttempts; attempt++ {
		if attempt > 0 {
			retrySleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}

		resp, err := p.extractor.Extract(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryableExtractError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
		p.log.Warn("extraction attempt failed",
			"case", req.Metadata.CaseID, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func isRetryableExtractError(err error) bool {
	return errors.Is(err, model.ErrCapabilityUnavailable)
}

// citatorResult carries whatever the citator produced before its timeout
type citatorResult struct {
	meta model.CaseMetadata
	rel  *model.CaseRelations
	err  error
}

// lookupCitator starts the best-effort citator work: metadata enrichment
// and case relations. Returns nil when the resolver is disabled.
func (p *Pipeline) lookupCitator(ctx context.Context, meta model.CaseMetadata) <-chan citatorResult {
	if p.resolver == nil || meta.CaseID == "" {
		return nil
	}
	ch := make(chan citatorResult, 1)
	go func() {
		timeout := p.config.Resolver.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		enriched := meta
		if err := p.resolver.Enrich(rctx, &enriched); err != nil {
			p.log.Debug("citator enrich failed", "case", meta.CaseID, "error", err)
			ch <- citatorResult{meta: meta, err: err}
			return
		}
		rel, err := p.resolver.Relations(rctx, enriched.CaseID)
		if err != nil {
			p.log.Debug("citator relations failed", "case", meta.CaseID, "error", err)
		}
		ch <- citatorResult{meta: enriched, rel: rel, err: err}
	}()
	return ch
}

// caseMetadata resolves the case identity, trying the explicit hint, the
// parsed header, and finally the URL slug.
func (p *Pipeline) caseMetadata(in Input, doc *markup.Document) (model.CaseMetadata, error) {
	candidates := []string{in.CitationHint, doc.Header.Citation, citation.ExpandCompact(in.Slug)}

	var lastErr error
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		meta, err := citation.Parse(candidate)
		if err == nil {
			return meta, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no citation candidates", model.ErrCitationUnsupported)
	}
	return model.CaseMetadata{}, fmt.Errorf("resolve case identity: %w", lastErr)
}

// languageOf guesses the decision language from the style of cause.
// French criminal styles use "c." between the parties.
func languageOf(style string) string {
	if style == "" {
		return ""
	}
	if strings.Contains(style, " c. ") || strings.Contains(style, " c ") {
		return "fr"
	}
	if strings.Contains(style, " v. ") || strings.Contains(style, " v ") {
		return "en"
	}
	return ""
}
