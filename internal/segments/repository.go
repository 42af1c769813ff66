package segments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"wacrm/internal/segment"
	pkgerrors "wacrm/pkg/errors"
	"wacrm/pkg/metrics"
)

const (
	pqUniqueViolation = "23505"
	pqInvalidText     = "22P02"
)

type Repository interface {
	Create(ctx context.Context, seg *Segment, changedBy string) error
	Get(ctx context.Context, scope segment.Scope, id string) (*Segment, error)
	List(ctx context.Context, scope segment.Scope) ([]Segment, error)
	ListEnabled(ctx context.Context) ([]Segment, error)
	Update(ctx context.Context, seg *Segment, action, changedBy string) error
	Delete(ctx context.Context, scope segment.Scope, id, changedBy string) (*Segment, error)
	History(ctx context.Context, scope segment.Scope, id string, limit int) ([]HistoryEntry, error)
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const segmentColumns = `id, owner_id, company_id, name, description, filter, enabled, version, created_at, updated_at`

// Create inserts the segment and its first history entry in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, seg *Segment, changedBy string) (err error) {
	start := time.Now()
	defer func() { observeQuery("create", start, err) }()

	if seg.ID == "" {
		seg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	seg.CreatedAt = now
	seg.UpdatedAt = now
	seg.Version = 1

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO segments (` + segmentColumns + `)
			VALUES (:id, :owner_id, :company_id, :name, :description, :filter, :enabled, :version, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, seg); err != nil {
			if isUniqueViolation(err) {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("segment with name '%s' already exists", seg.Name))
			}
			return fmt.Errorf("failed to create segment: %w", err)
		}
		return insertHistory(ctx, tx, seg, "create", changedBy)
	})
}

func (r *PostgresRepository) Get(ctx context.Context, scope segment.Scope, id string) (_ *Segment, err error) {
	start := time.Now()
	defer func() { observeQuery("get", start, err) }()

	query := `
		SELECT ` + segmentColumns + `
		FROM segments
		WHERE id = $1 AND owner_id = $2 AND company_id = $3
	`

	var seg Segment
	if err := r.db.GetContext(ctx, &seg, query, id, scope.OwnerID, scope.CompanyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
		}
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &seg, nil
}

func (r *PostgresRepository) List(ctx context.Context, scope segment.Scope) (_ []Segment, err error) {
	start := time.Now()
	defer func() { observeQuery("list", start, err) }()

	query := `
		SELECT ` + segmentColumns + `
		FROM segments
		WHERE owner_id = $1 AND company_id = $2
		ORDER BY name ASC
	`

	segments := []Segment{}
	if err := r.db.SelectContext(ctx, &segments, query, scope.OwnerID, scope.CompanyID); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// ListEnabled returns the enabled segments of every owner.
func (r *PostgresRepository) ListEnabled(ctx context.Context) (_ []Segment, err error) {
	start := time.Now()
	defer func() { observeQuery("list_enabled", start, err) }()

	query := `
		SELECT ` + segmentColumns + `
		FROM segments
		WHERE enabled
		ORDER BY owner_id, company_id, created_at
	`

	var segments []Segment
	if err := r.db.SelectContext(ctx, &segments, query); err != nil {
		return nil, fmt.Errorf("failed to list enabled segments: %w", err)
	}
	return segments, nil
}

// Update writes the segment, bumps its version and records the change.
func (r *PostgresRepository) Update(ctx context.Context, seg *Segment, action, changedBy string) (err error) {
	start := time.Now()
	defer func() { observeQuery("update", start, err) }()

	seg.UpdatedAt = time.Now().UTC()

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE segments
			SET name = :name, description = :description, filter = :filter,
			    enabled = :enabled, version = version + 1, updated_at = :updated_at
			WHERE id = :id AND owner_id = :owner_id AND company_id = :company_id
			RETURNING version
		`
		rows, err := sqlx.NamedQueryContext(ctx, tx, query, seg)
		if err != nil {
			if isUniqueViolation(err) {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("segment with name '%s' already exists", seg.Name))
			}
			return fmt.Errorf("failed to update segment: %w", err)
		}
		found := rows.Next()
		if found {
			err = rows.Scan(&seg.Version)
		}
		if closeErr := rows.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}
		if !found {
			return pkgerrors.ErrNotFound.WithDetail("id", seg.ID)
		}
		return insertHistory(ctx, tx, seg, action, changedBy)
	})
}

// Delete removes the segment and returns what was deleted. The history
// rows are kept.
func (r *PostgresRepository) Delete(ctx context.Context, scope segment.Scope, id, changedBy string) (_ *Segment, err error) {
	start := time.Now()
	defer func() { observeQuery("delete", start, err) }()

	var deleted Segment
	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			DELETE FROM segments
			WHERE id = $1 AND owner_id = $2 AND company_id = $3
			RETURNING ` + segmentColumns
		if err := tx.GetContext(ctx, &deleted, query, id, scope.OwnerID, scope.CompanyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
				return pkgerrors.ErrNotFound.WithDetail("id", id)
			}
			return fmt.Errorf("failed to delete segment: %w", err)
		}
		return insertHistory(ctx, tx, &deleted, "delete", changedBy)
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (r *PostgresRepository) History(ctx context.Context, scope segment.Scope, id string, limit int) (_ []HistoryEntry, err error) {
	start := time.Now()
	defer func() { observeQuery("history", start, err) }()

	// Deleted segments keep their history, so ownership is checked against
	// the snapshots rather than the live row.
	query := `
		SELECT id, segment_id, version, action, changed_by, snapshot, created_at
		FROM segment_history
		WHERE segment_id = $1
		  AND snapshot->>'ownerId' = $2
		  AND COALESCE(snapshot->>'companyId', '') = $3
		ORDER BY version DESC, id DESC
		LIMIT $4
	`

	entries := []HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, id, scope.OwnerID, scope.CompanyID, limit); err != nil {
		if isInvalidText(err) {
			return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
		}
		return nil, fmt.Errorf("failed to list segment history: %w", err)
	}
	return entries, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, seg *Segment, action, changedBy string) error {
	snapshot, err := snapshotOf(seg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO segment_history (segment_id, version, action, changed_by, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, query, seg.ID, seg.Version, action, changedBy, snapshot, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record segment history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidText
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !pkgerrors.IsNotFound(err) {
		status = "error"
	}
	metrics.IncDatabaseQuery("segments", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("segments", "postgres", operation, time.Since(start))
}
