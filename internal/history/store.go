// internal/history/store.go
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Record is one persisted pipeline run: the query, its outcome and the
// assembled report when one exists.
type Record struct {
	ID        string
	RequestID string
	UserID    string
	QueryText string
	Intent    models.IntentKind
	Stage     models.PipelineStage
	ErrorCode string
	Report    *models.Report
	CreatedAt time.Time
}

// Store persists finished pipeline runs to Postgres for audit and
// follow-up retrieval.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "history"}),
	}
}

// Insert writes one pipeline result. The report column is JSONB; a nil
// report is stored as SQL NULL.
func (s *Store) Insert(ctx context.Context, result *models.PipelineResult, userID, queryText string) error {
	var reportJSON interface{}
	if result.Report != nil {
		payload, err := json.Marshal(result.Report)
		if err != nil {
			return commonerrors.NewDatabaseInsertFailedError(err)
		}
		reportJSON = payload
	}

	var intent models.IntentKind
	if result.Intent != nil {
		intent = result.Intent.Kind
	}

	var errorCode string
	if result.Err != nil {
		errorCode = result.Err.Code
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history (
			id, request_id, user_id, query_text,
			intent, stage, error_code, report, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New().String(),
		result.RequestID,
		userID,
		queryText,
		string(intent),
		string(result.Stage),
		nullable(errorCode),
		reportJSON,
		time.Now().UTC(),
	)
	if err != nil {
		return commonerrors.NewDatabaseInsertFailedError(err)
	}

	return nil
}

// Recent returns the user's latest runs, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, user_id, query_text,
		       intent, stage, COALESCE(error_code, ''), report, created_at
		FROM query_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, commonerrors.NewDatabaseConnectionFailedError(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var intent, stage string
		var reportJSON []byte
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.UserID, &rec.QueryText,
			&intent, &stage, &rec.ErrorCode, &reportJSON, &rec.CreatedAt); err != nil {
			return nil, commonerrors.NewDatabaseConnectionFailedError(err)
		}
		rec.Intent = models.IntentKind(intent)
		rec.Stage = models.PipelineStage(stage)
		if len(reportJSON) > 0 {
			var report models.Report
			if err := json.Unmarshal(reportJSON, &report); err != nil {
				s.logger.Warn("stored report unmarshal failed", map[string]interface{}{
					"record_id": rec.ID,
					"error":     err.Error(),
				})
			} else {
				rec.Report = &report
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewDatabaseConnectionFailedError(err)
	}

	return out, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
