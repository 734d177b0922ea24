package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jurimetrics/sentenza/internal/cache"
	"github.com/jurimetrics/sentenza/internal/model"
)

const (
	defaultBaseURL = "https://api.canlii.org/v1"

	// maxCitatorBytes caps citator response bodies
	maxCitatorBytes = 2_000_000
)

// Resolver queries the CanLII REST API for case relations and metadata.
// Lookups are rate limited and cached; every method is safe on a nil
// receiver so a disabled resolver needs no call-site guards.
type Resolver struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	store   cache.Cache
}

// NewResolver builds a resolver from config. Returns nil when the resolver
// is disabled or has no API key. The store may be nil to skip caching.
func NewResolver(cfg model.ResolverConfig, store cache.Cache) *Resolver {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	perSecond := cfg.Rate
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Resolver{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		store:   store,
	}
}

// Wire shapes for the CanLII API. Case ids come back keyed by language.
type citatorCaseWire struct {
	DatabaseID string            `json:"databaseId"`
	CaseID     map[string]string `json:"caseId"`
	Title      string            `json:"title"`
	Citation   string            `json:"citation"`
}

type citatorLegislationWire struct {
	DatabaseID    string `json:"databaseId"`
	LegislationID string `json:"legislationId"`
	Title         string `json:"title"`
	Citation      string `json:"citation"`
	Type          string `json:"type"`
}

type citatorResponse struct {
	CitingCases       []citatorCaseWire        `json:"citingCases"`
	CitedCases        []citatorCaseWire        `json:"citedCases"`
	CitedLegislations []citatorLegislationWire `json:"citedLegislations"`
}

type caseBrowseWire struct {
	DatabaseID   string            `json:"databaseId"`
	CaseID       map[string]string `json:"caseId"`
	Title        string            `json:"title"`
	Citation     string            `json:"citation"`
	Language     string            `json:"language"`
	DocketNumber string            `json:"docketNumber"`
	DecisionDate string            `json:"decisionDate"`
	Keywords     string            `json:"keywords"`
}

// Relations fetches the citator view of a decision: citing cases, cited
// cases, cited legislation. The returned relations are always usable; the
// error reports the first failed lookup and is advisory. A fully successful
// lookup is cached; partial results are not, so the missing lists are
// retried on the next run.
func (r *Resolver) Relations(ctx context.Context, caseID string) (*model.CaseRelations, error) {
	if r == nil {
		return nil, nil
	}

	db := CourtOfCaseID(caseID)
	if db == "" {
		return nil, fmt.Errorf("%w: %q", model.ErrCitationUnsupported, caseID)
	}

	key := cache.Key("citator", caseID)
	if r.store != nil {
		if data, found := r.store.Get(key); found {
			var rel model.CaseRelations
			if err := json.Unmarshal(data, &rel); err == nil {
				return &rel, nil
			}
		}
	}

	rel := &model.CaseRelations{}
	var firstErr error

	var citing citatorResponse
	if err := r.getJSON(ctx, r.citatorURL(db, caseID, "citingCases"), "citing cases", &citing); err != nil {
		firstErr = err
	} else {
		rel.CitingCases = toCaseRefs(citing.CitingCases)
	}

	var cited citatorResponse
	if err := r.getJSON(ctx, r.citatorURL(db, caseID, "citedCases"), "cited cases", &cited); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else {
		rel.CitedCases = toCaseRefs(cited.CitedCases)
	}

	var legislation citatorResponse
	if err := r.getJSON(ctx, r.citatorURL(db, caseID, "citedLegislations"), "cited legislation", &legislation); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else {
		rel.CitedLegislation = toLegislationRefs(legislation.CitedLegislations)
	}

	if firstErr == nil && r.store != nil {
		if data, err := json.Marshal(rel); err == nil {
			_ = r.store.Set(key, data, 0)
		}
	}

	return rel, firstErr
}

// Enrich fills blank metadata fields from the CanLII case browse endpoint.
// Fields already set from the judgment header take precedence and are never
// overwritten.
func (r *Resolver) Enrich(ctx context.Context, meta *model.CaseMetadata) error {
	if r == nil || meta == nil {
		return nil
	}
	if meta.CaseID == "" {
		return fmt.Errorf("%w: missing case id", model.ErrCitationUnsupported)
	}

	db := meta.Court
	if db == "" {
		db = CourtOfCaseID(meta.CaseID)
	}
	if db == "" {
		return fmt.Errorf("%w: %q", model.ErrCitationUnsupported, meta.CaseID)
	}

	key := cache.Key("browse", meta.CaseID)
	var wire caseBrowseWire
	cached := false
	if r.store != nil {
		if data, found := r.store.Get(key); found {
			if err := json.Unmarshal(data, &wire); err == nil {
				cached = true
			}
		}
	}

	if !cached {
		url := fmt.Sprintf("%s/caseBrowse/en/%s/%s/?api_key=%s", r.baseURL, db, meta.CaseID, r.apiKey)
		if err := r.getJSON(ctx, url, "case browse", &wire); err != nil {
			return err
		}
		if r.store != nil {
			if data, err := json.Marshal(wire); err == nil {
				_ = r.store.Set(key, data, 0)
			}
		}
	}

	if meta.StyleOfCause == "" {
		meta.StyleOfCause = wire.Title
	}
	if meta.Docket == "" {
		meta.Docket = wire.DocketNumber
	}
	if meta.DecisionDate == "" {
		meta.DecisionDate = wire.DecisionDate
	}
	if meta.Language == "" {
		meta.Language = wire.Language
	}
	if len(meta.Keywords) == 0 && wire.Keywords != "" {
		meta.Keywords = splitBrowseKeywords(wire.Keywords)
	}

	return nil
}

func (r *Resolver) citatorURL(db, caseID, refType string) string {
	return fmt.Sprintf("%s/caseCitator/en/%s/%s/%s?api_key=%s", r.baseURL, db, caseID, refType, r.apiKey)
}

// getJSON performs one rate-limited GET. Error text carries the endpoint
// label, never the request URL, which embeds the API key.
func (r *Resolver) getJSON(ctx context.Context, url, label string, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", label, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", label, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", label, model.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", label, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCitatorBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", label, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", label, err)
	}
	return nil
}

func toCaseRefs(wire []citatorCaseWire) []model.CaseRef {
	if len(wire) == 0 {
		return nil
	}
	refs := make([]model.CaseRef, 0, len(wire))
	for _, w := range wire {
		refs = append(refs, model.CaseRef{
			Database: w.DatabaseID,
			CaseID:   wireCaseID(w.CaseID),
			Title:    w.Title,
			Citation: w.Citation,
		})
	}
	return refs
}

func toLegislationRefs(wire []citatorLegislationWire) []model.LegislationRef {
	if len(wire) == 0 {
		return nil
	}
	refs := make([]model.LegislationRef, 0, len(wire))
	for _, w := range wire {
		refs = append(refs, model.LegislationRef{
			Database:      w.DatabaseID,
			LegislationID: w.LegislationID,
			Title:         w.Title,
			Citation:      w.Citation,
			Type:          w.Type,
		})
	}
	return refs
}

// wireCaseID picks a case id from the language-keyed map, preferring English
func wireCaseID(m map[string]string) string {
	if v := m["en"]; v != "" {
		return v
	}
	if v := m["fr"]; v != "" {
		return v
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitBrowseKeywords splits the flat keyword string CanLII returns
func splitBrowseKeywords(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '—' || r == ';' || r == '|'
	})
	var keywords []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
