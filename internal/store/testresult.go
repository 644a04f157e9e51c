package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vocaciona/apiserver/types"
)

const resultColumns = `id, user_id, test_type, area, score, detail, created_at`

// TestResultRepository handles persistence for test results.
type TestResultRepository struct {
	db *sql.DB
}

func NewTestResultRepository(db *sql.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

func (r *TestResultRepository) Create(ctx context.Context, result types.TestResult) (types.TestResult, error) {
	result.CreatedAt = time.Now()

	const query = `
		INSERT INTO test_results (id, user_id, test_type, area, score, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		result.ID,
		result.UserID,
		result.TestType,
		result.Area,
		result.Score,
		result.Detail,
		result.CreatedAt,
	); err != nil {
		return types.TestResult{}, translateInsertError(err)
	}
	return result, nil
}

func (r *TestResultRepository) GetByID(ctx context.Context, id string) (types.TestResult, error) {
	const query = `
		SELECT ` + resultColumns + `
		FROM test_results
		WHERE id = $1`
	return scanResult(r.db.QueryRowContext(ctx, query, id))
}

func (r *TestResultRepository) ListByUser(ctx context.Context, userID string) ([]types.TestResult, error) {
	const query = `
		SELECT ` + resultColumns + `
		FROM test_results
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.TestResult
	for rows.Next() {
		var result types.TestResult
		if err := rows.Scan(
			&result.ID,
			&result.UserID,
			&result.TestType,
			&result.Area,
			&result.Score,
			&result.Detail,
			&result.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetLatest returns the most recent result for a user.
func (r *TestResultRepository) GetLatest(ctx context.Context, userID string) (types.TestResult, error) {
	const query = `
		SELECT ` + resultColumns + `
		FROM test_results
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return scanResult(r.db.QueryRowContext(ctx, query, userID))
}

func (r *TestResultRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM test_results WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TestResultRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM test_results WHERE user_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// StatsByUser aggregates a user's test history: total attempts, distinct
// test types, latest completion time, and the average score per area.
func (r *TestResultRepository) StatsByUser(ctx context.Context, userID string) (types.VocationalStats, error) {
	stats := types.VocationalStats{
		Tipos:           []string{},
		PromedioPorArea: map[string]float64{},
	}

	const totalsQuery = `
		SELECT COUNT(*), MAX(created_at)
		FROM test_results
		WHERE user_id = $1`
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, totalsQuery, userID).Scan(&stats.Total, &last); err != nil {
		return types.VocationalStats{}, err
	}
	if last.Valid {
		stats.UltimaFecha = &last.Time
	}

	const typesQuery = `
		SELECT DISTINCT test_type
		FROM test_results
		WHERE user_id = $1
		ORDER BY test_type`
	typeRows, err := r.db.QueryContext(ctx, typesQuery, userID)
	if err != nil {
		return types.VocationalStats{}, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		if err := typeRows.Scan(&t); err != nil {
			return types.VocationalStats{}, err
		}
		stats.Tipos = append(stats.Tipos, t)
	}
	if err := typeRows.Err(); err != nil {
		return types.VocationalStats{}, err
	}

	const areasQuery = `
		SELECT area, AVG(score)
		FROM test_results
		WHERE user_id = $1
		GROUP BY area`
	areaRows, err := r.db.QueryContext(ctx, areasQuery, userID)
	if err != nil {
		return types.VocationalStats{}, err
	}
	defer areaRows.Close()
	for areaRows.Next() {
		var area string
		var avg float64
		if err := areaRows.Scan(&area, &avg); err != nil {
			return types.VocationalStats{}, err
		}
		stats.PromedioPorArea[area] = avg
	}
	return stats, areaRows.Err()
}

func scanResult(row *sql.Row) (types.TestResult, error) {
	var result types.TestResult
	err := row.Scan(
		&result.ID,
		&result.UserID,
		&result.TestType,
		&result.Area,
		&result.Score,
		&result.Detail,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.TestResult{}, ErrNotFound
		}
		return types.TestResult{}, err
	}
	return result, nil
}
