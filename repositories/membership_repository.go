package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/ppenca/penca/models"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipConflict = errors.New("user is already a member of this group")
	ErrMembershipInvalid  = errors.New("membership references unknown user or group")
)

type MembershipRepository interface {
	Create(ctx context.Context, m *models.Membership) error
	GetByID(ctx context.Context, id int) (*models.Membership, error)
	GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Membership, error)
	UpdateScore(ctx context.Context, id int, score int) error
}

type postgresMembershipRepository struct {
	db *sql.DB
}

func NewPostgresMembershipRepository(db *sql.DB) MembershipRepository {
	return &postgresMembershipRepository{db: db}
}

func (r *postgresMembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, group_id, score)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, m.UserID, m.GroupID, m.Score).
		Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "memberships_user_id_group_id_key" {
					return ErrMembershipConflict
				}
			case "23503":
				return ErrMembershipInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresMembershipRepository) GetByID(ctx context.Context, id int) (*models.Membership, error) {
	query := `
		SELECT id, user_id, group_id, score, created_at
		FROM memberships
		WHERE id = $1`

	var m models.Membership
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.UserID,
		&m.GroupID,
		&m.Score,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMembershipRepository) GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Membership, error) {
	query := `
		SELECT
			m.id, m.user_id, m.group_id, m.score, m.created_at,
			p.id, p.amount, p.provider_ref, p.completed, p.created_at
		FROM memberships m
		LEFT JOIN payments p ON p.member_id = m.id
		WHERE m.user_id = $1 AND m.group_id = $2`

	var m models.Membership
	var payID sql.NullInt64
	var payAmount sql.NullFloat64
	var payRef sql.NullString
	var payCompleted sql.NullBool
	var payCreatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(
		&m.ID,
		&m.UserID,
		&m.GroupID,
		&m.Score,
		&m.CreatedAt,
		&payID,
		&payAmount,
		&payRef,
		&payCompleted,
		&payCreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	if payID.Valid {
		m.Payment = &models.Payment{
			ID:          int(payID.Int64),
			MemberID:    m.ID,
			Amount:      payAmount.Float64,
			ProviderRef: payRef.String,
			Completed:   payCompleted.Bool,
			CreatedAt:   payCreatedAt.Time,
		}
	}

	return &m, nil
}

func (r *postgresMembershipRepository) UpdateScore(ctx context.Context, id int, score int) error {
	query := `UPDATE memberships SET score = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, score, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMembershipNotFound)
}
