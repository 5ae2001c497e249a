package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ppenca/penca/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	ListAll(ctx context.Context) ([]models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

// ListAll возвращает все сборные в порядке групп группового этапа.
func (r *postgresTeamRepository) ListAll(ctx context.Context) ([]models.Team, error) {
	query := `
		SELECT id, name, stage_group
		FROM teams
		ORDER BY stage_group ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(&t.ID, &t.Name, &t.StageGroup); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, stage_group FROM teams WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.StageGroup)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}
