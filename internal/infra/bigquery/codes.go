// Package bigquery reads reference code lists from BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/rendiciones/internal/domain"
	"google.golang.org/api/iterator"
)

const codesTable = "codes"

// CodeRow is one row of the codes table.
type CodeRow struct {
	CodeType string              `bigquery:"code_type"` // REQUIRED
	Code     string              `bigquery:"code"`      // REQUIRED
	Name     bigquery.NullString `bigquery:"name"`      // NULLABLE
	IsActive bigquery.NullBool   `bigquery:"is_active"` // NULLABLE (null counts as active)
}

// BigQueryCodeRepository lists codes from `<project>.<dataset>.codes` with a
// shared client.
type BigQueryCodeRepository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewBigQueryCodeRepository opens a client for project.
func NewBigQueryCodeRepository(ctx context.Context, project, dataset string) (*BigQueryCodeRepository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryCodeRepository: creating client: %w", err)
	}
	return &BigQueryCodeRepository{
		client:  client,
		project: project,
		dataset: dataset,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryCodeRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListCodes returns the active codes of codeType ordered by code.
func (r *BigQueryCodeRepository) ListCodes(ctx context.Context, codeType domain.CodeType) ([]domain.CodeEntry, error) {
	query := fmt.Sprintf(`
		SELECT
			code_type,
			code,
			name,
			is_active
		FROM `+"`%s.%s.%s`"+`
		WHERE code_type = @codeType
		  AND (is_active IS NULL OR is_active = TRUE)
		ORDER BY code
	`, r.project, r.dataset, codesTable)

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "codeType", Value: string(codeType)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCodes: reading query: %w", err)
	}

	var rows []CodeRow
	for {
		var row CodeRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCodes: iterating: %w", err)
		}
		rows = append(rows, row)
	}

	return toEntries(rows), nil
}

// toEntries maps rows to code entries, dropping inactive rows and blank
// codes. A missing name falls back to the code itself.
func toEntries(rows []CodeRow) []domain.CodeEntry {
	entries := make([]domain.CodeEntry, 0, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		if row.IsActive.Valid && !row.IsActive.Bool {
			continue
		}
		name := code
		if row.Name.Valid && strings.TrimSpace(row.Name.StringVal) != "" {
			name = strings.TrimSpace(row.Name.StringVal)
		}
		entries = append(entries, domain.CodeEntry{Code: code, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	return entries
}
