package store

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeliberationStore struct {
	db *pgxpool.Pool
}

func NewDeliberationStore(db *pgxpool.Pool) *DeliberationStore {
	return &DeliberationStore{db: db}
}

const deliberationColumns = `id, request_id, external_ref, profile, application, record, responses,
	transcript, agent_status, processing_ms, created_at`

func (s *DeliberationStore) Create(ctx context.Context, d *domain.Deliberation) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO deliberations (id, request_id, external_ref, profile, application, decision, reason,
		     passed_count, special_violations, conditional, record, responses, transcript, agent_status, processing_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at`,
		d.ID, d.RequestID, nullableString(d.ExternalRef), d.Profile, d.Application,
		string(d.Record.Decision), d.Record.Reason, d.Record.PassedCount, d.Record.SpecialViolations, d.Record.Conditional,
		d.Record, d.Responses, d.Transcript, d.AgentStatus, d.ProcessingMS,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *DeliberationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deliberation, error) {
	d, err := scanDeliberation(s.db.QueryRow(ctx,
		`SELECT `+deliberationColumns+` FROM deliberations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DeliberationStore) List(ctx context.Context, limit int) ([]domain.Deliberation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deliberationColumns+` FROM deliberations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Deliberation
	for rows.Next() {
		d, err := scanDeliberation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *DeliberationStore) Stats(ctx context.Context) (*domain.DeliberationStats, error) {
	st := &domain.DeliberationStats{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE decision = 'approve'),
		        COUNT(*) FILTER (WHERE decision = 'reject'),
		        COALESCE(AVG(processing_ms), 0)
		 FROM deliberations`,
	).Scan(&st.Total, &st.Approved, &st.Rejected, &st.AvgProcessingMS)
	if err != nil {
		return nil, err
	}
	if st.Total > 0 {
		st.ApprovalRate = float64(st.Approved) / float64(st.Total)
	}
	return st, nil
}

func (s *DeliberationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM deliberations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDeliberation(row pgx.Row) (*domain.Deliberation, error) {
	d := &domain.Deliberation{}
	var externalRef *string
	err := row.Scan(&d.ID, &d.RequestID, &externalRef, &d.Profile, &d.Application, &d.Record, &d.Responses,
		&d.Transcript, &d.AgentStatus, &d.ProcessingMS, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if externalRef != nil {
		d.ExternalRef = *externalRef
	}
	return d, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
