package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"assetproxy/internal/audit"
)

// NewDeletionRepository 返回基于 *sql.DB 的 Postgres 实现。
func NewDeletionRepository(db *sql.DB) *DeletionRepository {
	return &DeletionRepository{db: db}
}

// DeletionRepository 实现 audit.Recorder。
type DeletionRepository struct {
	db *sql.DB
}

var auditSelectColumns = []string{
	"id",
	"kind",
	"provider",
	"request_id",
	"success_policy",
	"total_requested",
	"successful",
	"failed",
	"success",
	"public_ids",
	"results",
	"created_at",
}

var auditInsertColumns = []string{
	"id",
	"kind",
	"provider",
	"request_id",
	"success_policy",
	"total_requested",
	"successful",
	"failed",
	"success",
	"public_ids",
	"results",
}

// Record 插入一条审计记录，并回填数据库生成的 created_at。
func (r *DeletionRepository) Record(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is nil")
	}

	ids, err := json.Marshal(normalizeIDs(entry.PublicIDs))
	if err != nil {
		return fmt.Errorf("encode public ids: %w", err)
	}
	results := []byte(entry.Results)
	if len(results) == 0 {
		results = []byte("[]")
	}

	placeholders := make([]string, len(auditInsertColumns))
	for i := range auditInsertColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO deletion_audits (%s)
	VALUES (%s)
	RETURNING created_at`,
		strings.Join(auditInsertColumns, ","),
		strings.Join(placeholders, ","),
	)

	var requestID sql.NullString
	if entry.RequestID != "" {
		requestID = sql.NullString{String: entry.RequestID, Valid: true}
	}

	row := r.db.QueryRowContext(
		ctx,
		query,
		entry.ID,
		string(entry.Kind),
		entry.Provider,
		requestID,
		entry.SuccessPolicy,
		entry.TotalRequested,
		entry.Successful,
		entry.Failed,
		entry.Success,
		ids,
		results,
	)
	return row.Scan(&entry.CreatedAt)
}

// List 按创建时间倒序返回最近的记录。
func (r *DeletionRepository) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM deletion_audits ORDER BY created_at DESC LIMIT $1`,
		strings.Join(auditSelectColumns, ","))
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []audit.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(rs rowScanner) (*audit.Entry, error) {
	var (
		entry     audit.Entry
		kind      string
		requestID sql.NullString
		ids       []byte
		results   []byte
	)

	if err := rs.Scan(
		&entry.ID,
		&kind,
		&entry.Provider,
		&requestID,
		&entry.SuccessPolicy,
		&entry.TotalRequested,
		&entry.Successful,
		&entry.Failed,
		&entry.Success,
		&ids,
		&results,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	entry.Kind = audit.Kind(kind)
	if requestID.Valid {
		entry.RequestID = requestID.String
	}
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &entry.PublicIDs); err != nil {
			return nil, err
		}
	}
	entry.PublicIDs = normalizeIDs(entry.PublicIDs)
	if len(results) > 0 {
		entry.Results = json.RawMessage(results)
	}

	return &entry, nil
}

func normalizeIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ audit.Recorder = (*DeletionRepository)(nil)
