package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/ppenca/penca/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentConflict = errors.New("payment already exists for this membership")
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByMemberID(ctx context.Context, memberID int) (*models.Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error)
	MarkCompleted(ctx context.Context, id int) error
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

func (r *postgresPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (member_id, amount, provider_ref, completed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		payment.MemberID,
		payment.Amount,
		payment.ProviderRef,
		payment.Completed,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "payments_member_id_key" {
				return ErrPaymentConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresPaymentRepository) GetByMemberID(ctx context.Context, memberID int) (*models.Payment, error) {
	query := `
		SELECT id, member_id, amount, provider_ref, completed, created_at
		FROM payments
		WHERE member_id = $1`
	return r.scanPayment(ctx, query, memberID)
}

func (r *postgresPaymentRepository) GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	query := `
		SELECT id, member_id, amount, provider_ref, completed, created_at
		FROM payments
		WHERE provider_ref = $1`
	return r.scanPayment(ctx, query, ref)
}

func (r *postgresPaymentRepository) MarkCompleted(ctx context.Context, id int) error {
	query := `UPDATE payments SET completed = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPaymentNotFound)
}

func (r *postgresPaymentRepository) scanPayment(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	payment := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&payment.ID,
		&payment.MemberID,
		&payment.Amount,
		&payment.ProviderRef,
		&payment.Completed,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}
