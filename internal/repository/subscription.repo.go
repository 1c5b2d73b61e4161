package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SukhvirKooner/Louder/internal/domain"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
)

type SubmissionRepo struct {
	db *pgxpool.Pool
}

func NewSubmissionRepo(db *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

func (r *SubmissionRepo) Create(ctx context.Context, s *domain.EmailSubmission) (bool, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_submissions (id, email, event_id, submitted_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`, s.ID, s.Email, s.EventID, s.SubmittedAt)
	if xerrors.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
