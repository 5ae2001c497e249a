package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ppenca/penca/models"
)

var (
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrPredictionInvalid  = errors.New("prediction references unknown user or group")
)

type PredictionRepository interface {
	// Upsert перезаписывает прогноз целиком; частичного слияния нет.
	Upsert(ctx context.Context, prediction *models.Prediction) error
	GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Prediction, error)
	ListByGroup(ctx context.Context, groupID int) ([]models.Prediction, error)
}

type postgresPredictionRepository struct {
	db *sql.DB
}

func NewPostgresPredictionRepository(db *sql.DB) PredictionRepository {
	return &postgresPredictionRepository{db: db}
}

func (r *postgresPredictionRepository) Upsert(ctx context.Context, prediction *models.Prediction) error {
	matrixJSON, err := json.Marshal(prediction.Matrix)
	if err != nil {
		return fmt.Errorf("failed to marshal score matrix: %w", err)
	}
	roundsJSON, err := json.Marshal(prediction.Rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal round picks: %w", err)
	}

	query := `
		INSERT INTO predictions (user_id, group_id, matrix, rounds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, group_id)
		DO UPDATE SET matrix = EXCLUDED.matrix, rounds = EXCLUDED.rounds, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		prediction.UserID,
		prediction.GroupID,
		matrixJSON,
		roundsJSON,
	).Scan(&prediction.ID, &prediction.CreatedAt, &prediction.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" { // foreign_key_violation
				return ErrPredictionInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresPredictionRepository) GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Prediction, error) {
	query := `
		SELECT id, user_id, group_id, matrix, rounds, created_at, updated_at
		FROM predictions
		WHERE user_id = $1 AND group_id = $2`

	row := r.db.QueryRowContext(ctx, query, userID, groupID)
	prediction, err := scanPrediction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return prediction, nil
}

func (r *postgresPredictionRepository) ListByGroup(ctx context.Context, groupID int) ([]models.Prediction, error) {
	query := `
		SELECT id, user_id, group_id, matrix, rounds, created_at, updated_at
		FROM predictions
		WHERE group_id = $1
		ORDER BY user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]models.Prediction, 0)
	for rows.Next() {
		prediction, scanErr := scanPrediction(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		predictions = append(predictions, *prediction)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return predictions, nil
}

func scanPrediction(scan func(...interface{}) error) (*models.Prediction, error) {
	prediction := &models.Prediction{}
	var matrixJSON, roundsJSON []byte

	err := scan(
		&prediction.ID,
		&prediction.UserID,
		&prediction.GroupID,
		&matrixJSON,
		&roundsJSON,
		&prediction.CreatedAt,
		&prediction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(matrixJSON, &prediction.Matrix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score matrix: %w", err)
	}
	if err := json.Unmarshal(roundsJSON, &prediction.Rounds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round picks: %w", err)
	}
	return prediction, nil
}
