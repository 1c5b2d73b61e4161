package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SukhvirKooner/Louder/internal/domain"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
)

type OTPRepo struct {
	db *pgxpool.Pool
}

func NewOTPRepo(db *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{db: db}
}

func (r *OTPRepo) Create(ctx context.Context, o *domain.OTPRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO otp_records (id, email, code, issued_at)
		VALUES ($1, $2, $3, $4)
	`, o.ID, o.Email, o.Code, o.IssuedAt)
	return err
}

func (r *OTPRepo) Latest(ctx context.Context, email string) (*domain.OTPRecord, error) {
	var o domain.OTPRecord
	err := r.db.QueryRow(ctx, `
		SELECT id, email, code, issued_at
		FROM otp_records
		WHERE email = $1
		ORDER BY issued_at DESC, id DESC
		LIMIT 1
	`, email).Scan(&o.ID, &o.Email, &o.Code, &o.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OTPRepo) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_records WHERE issued_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type VerificationRepo struct {
	db *pgxpool.Pool
}

func NewVerificationRepo(db *pgxpool.Pool) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) MarkVerified(ctx context.Context, email string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO verified_emails (email, verified_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET verified_at = EXCLUDED.verified_at
	`, email, at)
	return err
}

func (r *VerificationRepo) Get(ctx context.Context, email string) (*domain.VerifiedEmail, error) {
	var v domain.VerifiedEmail
	err := r.db.QueryRow(ctx, `SELECT email, verified_at FROM verified_emails WHERE email = $1`, email).
		Scan(&v.Email, &v.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
