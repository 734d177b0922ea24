package model

import "time"

// Analysis is the complete artifact produced for one judgment. It carries
// everything needed to audit the run: where the text came from, how the
// decision was classified, and every record with its citations.
type Analysis struct {
	SourceURL  string     `json:"source_url,omitempty"`  // URL the judgment was fetched from
	SourcePath string     `json:"source_path,omitempty"` // Local path when read from disk
	FetchedAt  time.Time  `json:"fetched_at"`            // When the analysis ran
	FetchMeta  *FetchMeta `json:"fetch_meta,omitempty"`  // HTTP metadata, nil for local files

	Metadata  CaseMetadata   `json:"metadata"`
	Relations *CaseRelations `json:"relations,omitempty"` // Best-effort citator lookup

	Classification Classification     `json:"classification"`
	Records        []SentencingRecord `json:"records"`

	Coverage  Coverage `json:"coverage"`
	Extractor string   `json:"extractor,omitempty"` // Backend that produced the records
	Warnings  []string `json:"warnings,omitempty"`
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// Classification captures the gatekeeping decisions made before extraction
type Classification struct {
	Sentencing bool     `json:"sentencing"`        // Whether the decision imposes a sentence
	Appeal     *bool    `json:"appeal"`            // nil when the appellate posture is unresolved
	Markers    []string `json:"markers,omitempty"` // Marker phrases that drove the decision
}

// Coverage summarizes how well the extracted records are grounded in the
// judgment text. It is diagnostic only and never gates persistence.
type Coverage struct {
	Records        int `json:"records"`
	CitedFields    int `json:"cited_fields"`    // Fields backed by a paragraph citation
	UncitedFields  int `json:"uncited_fields"`  // Populated fields with no citation
	QuantumParsed  int `json:"quantum_parsed"`  // Components with a resolved quantum
	QuantumPending int `json:"quantum_pending"` // Components held for review
	PendingReview  int `json:"pending_review"`  // Records not in validated status
}
