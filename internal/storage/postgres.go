// Package storage persists extracted sentencing records to Postgres.
//
// One row per offender-offence-count outcome, upserted on the composite
// key (case_id, offender_name, offence_code, count). Rows a human has
// modified are never overwritten by a later re-analysis.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/jurimetrics/sentenza/internal/model"
)

const defaultTable = "sentences"

// SentenceStore persists extracted sentencing records.
type SentenceStore interface {
	SaveRecords(ctx context.Context, records []model.SentencingRecord) error
	Processed(ctx context.Context, caseIDs []string) (map[string]bool, error)
	Close() error
}

// Postgres writes sentencing records into a single Postgres table.
type Postgres struct {
	db      *sql.DB
	table   string
	builder sq.StatementBuilderType
}

var _ SentenceStore = (*Postgres)(nil)

// recordColumns is the column order shared by inserts and selects.
var recordColumns = []string{
	"case_id", "offender_name", "offence_code", "offence_name", "count",
	"offence_date", "offence_start", "offence_end",
	"sentence_imposed", "citations",
	"is_appeal", "dissent", "appeal_outcome", "lower_court",
	"lower_varied", "higher_varied", "lower_sentence",
	"time_started", "time_stopped",
	"human_verified", "human_modified",
	"status", "violations",
}

// updateColumns are refreshed on conflict. The identity columns and the
// human review flags are left alone; human_verified is reset separately
// because a re-analysis invalidates an earlier sign-off.
var updateColumns = []string{
	"offence_name",
	"offence_date", "offence_start", "offence_end",
	"sentence_imposed", "citations",
	"is_appeal", "dissent", "appeal_outcome", "lower_court",
	"lower_varied", "higher_varied", "lower_sentence",
	"time_started", "time_stopped",
	"status", "violations",
}

// New wires a sql.DB implementation. An empty table name selects the
// default "sentences" table.
func New(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = defaultTable
	}
	return &Postgres{
		db:      db,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres with the given config and, when AutoMigrate
// is set, bootstraps the schema.
func Open(ctx context.Context, cfg model.StorageConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage DSN is empty")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(db, cfg.Table)
	if cfg.AutoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// EnsureSchema creates the sentences table and its indexes if missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// schemaStatements returns the bootstrap DDL. Date columns stay TEXT so
// that a malformed date flagged by the validator still reaches storage
// instead of failing the insert.
func (s *Postgres) schemaStatements() []string {
	table := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id               BIGSERIAL PRIMARY KEY,
	case_id          TEXT        NOT NULL,
	offender_name    TEXT        NOT NULL,
	offence_code     TEXT        NOT NULL,
	offence_name     TEXT        NOT NULL DEFAULT '',
	count            INTEGER     NOT NULL DEFAULT 1,
	offence_date     TEXT        NOT NULL DEFAULT '',
	offence_start    TEXT        NOT NULL DEFAULT '',
	offence_end      TEXT        NOT NULL DEFAULT '',
	sentence_imposed JSONB       NOT NULL,
	citations        JSONB       NOT NULL,
	is_appeal        BOOLEAN,
	dissent          BOOLEAN     NOT NULL DEFAULT FALSE,
	appeal_outcome   TEXT        NOT NULL DEFAULT '',
	lower_court      TEXT        NOT NULL DEFAULT '',
	lower_varied     BOOLEAN     NOT NULL DEFAULT FALSE,
	higher_varied    BOOLEAN     NOT NULL DEFAULT FALSE,
	lower_sentence   JSONB,
	time_started     TIMESTAMPTZ NOT NULL,
	time_stopped     TIMESTAMPTZ NOT NULL,
	human_verified   BOOLEAN     NOT NULL DEFAULT FALSE,
	human_modified   BOOLEAN     NOT NULL DEFAULT FALSE,
	status           TEXT        NOT NULL DEFAULT 'validated',
	violations       JSONB,
	UNIQUE (case_id, offender_name, offence_code, count)
)`, s.table)
	statusIndex := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status)`,
		s.table, s.table)
	return []string{table, statusIndex}
}

// SaveRecords upserts all records from one analysis in a single
// transaction. A nil store or empty DSN setup is a no-op.
func (s *Postgres) SaveRecords(ctx context.Context, records []model.SentencingRecord) error {
	if s == nil || s.db == nil || len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, rec := range records {
		query, args, err := s.insertQuery(rec)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build upsert for %s: %w", rec.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", rec.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Processed returns a map with the case IDs that already have at least
// one stored record. Batch runs use it to skip analyzed judgments.
func (s *Postgres) Processed(ctx context.Context, caseIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if s == nil || s.db == nil || len(caseIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT DISTINCT case_id FROM %s WHERE case_id = ANY($1)`, s.table)

	rows, err := s.db.QueryContext(ctx, query, pq.StringArray(caseIDs))
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan case id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// Case returns all stored records for one decision.
func (s *Postgres) Case(ctx context.Context, caseID string) ([]model.SentencingRecord, error) {
	query, args, err := s.caseQuery(caseID)
	if err != nil {
		return nil, fmt.Errorf("build case query: %w", err)
	}
	return s.queryRecords(ctx, query, args)
}

// PendingReview returns up to limit records held for human review,
// newest analysis first.
func (s *Postgres) PendingReview(ctx context.Context, limit int) ([]model.SentencingRecord, error) {
	query, args, err := s.pendingQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}
	return s.queryRecords(ctx, query, args)
}

// Close releases the database handle.
func (s *Postgres) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Postgres) insertQuery(rec model.SentencingRecord) (string, []interface{}, error) {
	vals, err := rowValues(rec)
	if err != nil {
		return "", nil, err
	}
	return s.builder.
		Insert(s.table).
		Columns(recordColumns...).
		Values(vals...).
		Suffix(s.conflictSuffix()).
		ToSql()
}

func (s *Postgres) conflictSuffix() string {
	assigns := make([]string, 0, len(updateColumns)+1)
	for _, col := range updateColumns {
		assigns = append(assigns, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	assigns = append(assigns, "human_verified = FALSE")
	return fmt.Sprintf(
		"ON CONFLICT (case_id, offender_name, offence_code, count) DO UPDATE SET %s WHERE %s.human_modified = FALSE",
		strings.Join(assigns, ", "), s.table)
}

func (s *Postgres) caseQuery(caseID string) (string, []interface{}, error) {
	return s.builder.
		Select(recordColumns...).
		From(s.table).
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("offence_code", "count").
		ToSql()
}

func (s *Postgres) pendingQuery(limit int) (string, []interface{}, error) {
	q := s.builder.
		Select(recordColumns...).
		From(s.table).
		Where(sq.Eq{"status": string(model.StatusPendingReview)}).
		OrderBy("time_stopped DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}

func (s *Postgres) queryRecords(ctx context.Context, query string, args []interface{}) ([]model.SentencingRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []model.SentencingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

// rowValues marshals a record into driver arguments in recordColumns
// order. An unresolved appeal maps to a SQL NULL is_appeal.
func rowValues(rec model.SentencingRecord) ([]interface{}, error) {
	sentence, err := json.Marshal(rec.Sentence)
	if err != nil {
		return nil, fmt.Errorf("marshal sentence: %w", err)
	}
	citations, err := json.Marshal(rec.Citations)
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}
	lower, err := json.Marshal(rec.Appeal.LowerSentence)
	if err != nil {
		return nil, fmt.Errorf("marshal lower sentence: %w", err)
	}
	violations, err := json.Marshal(rec.Violations)
	if err != nil {
		return nil, fmt.Errorf("marshal violations: %w", err)
	}

	var isAppeal interface{}
	if rec.Appeal.IsAppeal != nil {
		isAppeal = *rec.Appeal.IsAppeal
	}

	return []interface{}{
		rec.CaseID, rec.OffenderName, rec.OffenceCode, rec.OffenceName, rec.Count,
		rec.OffenceDate, rec.OffenceStart, rec.OffenceEnd,
		sentence, citations,
		isAppeal, rec.Appeal.Dissent, string(rec.Appeal.Outcome), rec.Appeal.LowerCourt,
		rec.Appeal.LowerVaried, rec.Appeal.HigherVaried, lower,
		rec.TimeStarted, rec.TimeStopped,
		rec.HumanVerified, rec.HumanModified,
		string(rec.Status), violations,
	}, nil
}

func scanRecord(rows *sql.Rows) (model.SentencingRecord, error) {
	var (
		rec            model.SentencingRecord
		sentenceJSON   []byte
		citationsJSON  []byte
		lowerJSON      []byte
		violationsJSON []byte
		isAppeal       sql.NullBool
		outcome        string
		status         string
	)
	err := rows.Scan(
		&rec.CaseID, &rec.OffenderName, &rec.OffenceCode, &rec.OffenceName, &rec.Count,
		&rec.OffenceDate, &rec.OffenceStart, &rec.OffenceEnd,
		&sentenceJSON, &citationsJSON,
		&isAppeal, &rec.Appeal.Dissent, &outcome, &rec.Appeal.LowerCourt,
		&rec.Appeal.LowerVaried, &rec.Appeal.HigherVaried, &lowerJSON,
		&rec.TimeStarted, &rec.TimeStopped,
		&rec.HumanVerified, &rec.HumanModified,
		&status, &violationsJSON,
	)
	if err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}

	if len(sentenceJSON) > 0 {
		if err := json.Unmarshal(sentenceJSON, &rec.Sentence); err != nil {
			return rec, fmt.Errorf("decode sentence: %w", err)
		}
	}
	if len(citationsJSON) > 0 {
		if err := json.Unmarshal(citationsJSON, &rec.Citations); err != nil {
			return rec, fmt.Errorf("decode citations: %w", err)
		}
	}
	if len(lowerJSON) > 0 {
		if err := json.Unmarshal(lowerJSON, &rec.Appeal.LowerSentence); err != nil {
			return rec, fmt.Errorf("decode lower sentence: %w", err)
		}
	}
	if len(violationsJSON) > 0 {
		if err := json.Unmarshal(violationsJSON, &rec.Violations); err != nil {
			return rec, fmt.Errorf("decode violations: %w", err)
		}
	}
	if isAppeal.Valid {
		b := isAppeal.Bool
		rec.Appeal.IsAppeal = &b
	}
	rec.Appeal.Outcome = model.AppealOutcome(outcome)
	rec.Status = model.RecordStatus(status)
	return rec, nil
}
