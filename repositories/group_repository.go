package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ppenca/penca/models"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupTitleConflict = errors.New("group title conflict")
	ErrGroupCreatorInvalid = errors.New("group creator invalid")
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	ListAll(ctx context.Context) ([]models.Group, error)
	ListByCountry(ctx context.Context, country string) ([]models.Group, error)
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	SetFinished(ctx context.Context, id int, finished bool) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (title, description, creator_id, password_hash, fee)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, finished, created_at`

	err := r.db.QueryRowContext(ctx, query,
		group.Title,
		group.Description,
		group.CreatorID,
		group.PasswordHash,
		group.Fee,
	).Scan(&group.ID, &group.Finished, &group.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "groups_title_key" {
					return ErrGroupTitleConflict
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "groups_creator_id_fkey" {
					return ErrGroupCreatorInvalid
				}
			}
		}
		return err
	}
	group.HasPassword = group.PasswordHash != nil
	return nil
}

// GetByID загружает группу вместе с участниками, их пользователями и
// платежами; порядок участников — по очкам, как его отдаёт БД.
func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	query := `
		SELECT id, title, description, creator_id, password_hash, fee, finished, logo_key, created_at
		FROM groups
		WHERE id = $1`

	group := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Title,
		&group.Description,
		&group.CreatorID,
		&group.PasswordHash,
		&group.Fee,
		&group.Finished,
		&group.LogoKey,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	group.HasPassword = group.PasswordHash != nil

	members, err := r.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

func (r *postgresGroupRepository) listMembers(ctx context.Context, groupID int) ([]models.Membership, error) {
	query := `
		SELECT
			m.id, m.user_id, m.group_id, m.score, m.created_at,
			u.first_name, u.last_name, u.email, u.role, u.country,
			p.id, p.amount, p.provider_ref, p.completed, p.created_at
		FROM memberships m
		JOIN users u ON m.user_id = u.id
		LEFT JOIN payments p ON p.member_id = m.id
		WHERE m.group_id = $1
		ORDER BY m.score DESC, m.id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.Membership, 0)
	for rows.Next() {
		var m models.Membership
		var u models.User

		var payID sql.NullInt64
		var payAmount sql.NullFloat64
		var payRef sql.NullString
		var payCompleted sql.NullBool
		var payCreatedAt sql.NullTime

		scanErr := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.GroupID,
			&m.Score,
			&m.CreatedAt,
			&u.FirstName,
			&u.LastName,
			&u.Email,
			&u.Role,
			&u.Country,
			&payID,
			&payAmount,
			&payRef,
			&payCompleted,
			&payCreatedAt,
		)
		if scanErr != nil {
			return nil, scanErr
		}

		u.ID = m.UserID
		m.User = &u

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

		members = append(members, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresGroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	query := `
		SELECT id, title, description, creator_id, password_hash, fee, finished, logo_key, created_at
		FROM groups
		ORDER BY created_at DESC`
	return r.listGroups(ctx, query)
}

// ListByCountry возвращает группы, у создателя которых указана данная
// страна. Обычные пользователи видят только пенки своей страны.
func (r *postgresGroupRepository) ListByCountry(ctx context.Context, country string) ([]models.Group, error) {
	query := `
		SELECT g.id, g.title, g.description, g.creator_id, g.password_hash, g.fee, g.finished, g.logo_key, g.created_at
		FROM groups g
		JOIN users u ON g.creator_id = u.id
		WHERE u.country = $1
		ORDER BY g.created_at DESC`
	return r.listGroups(ctx, query, country)
}

func (r *postgresGroupRepository) listGroups(ctx context.Context, query string, args ...interface{}) ([]models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	for rows.Next() {
		var g models.Group
		scanErr := rows.Scan(
			&g.ID,
			&g.Title,
			&g.Description,
			&g.CreatorID,
			&g.PasswordHash,
			&g.Fee,
			&g.Finished,
			&g.LogoKey,
			&g.CreatedAt,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		g.HasPassword = g.PasswordHash != nil
		groups = append(groups, g)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresGroupRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE groups SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) SetFinished(ctx context.Context, id int, finished bool) error {
	query := `UPDATE groups SET finished = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, finished, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}
