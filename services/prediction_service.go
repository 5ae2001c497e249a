package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/repositories"
)

type PredictionService interface {
	// Save перезаписывает прогноз пользователя целиком. Блокируется,
	// если группа завершена или взнос не оплачен.
	Save(ctx context.Context, input SavePredictionInput) (*models.Prediction, error)
	GetForUser(ctx context.Context, userID, groupID int) (*models.Prediction, error)
}

type SavePredictionInput struct {
	UserID  int                `json:"-"`
	GroupID int                `json:"group_id"`
	Matrix  models.ScoreMatrix `json:"group"`
	Rounds  models.RoundPicks  `json:"round"`
}

type predictionService struct {
	predictionRepo repositories.PredictionRepository
	membershipRepo repositories.MembershipRepository
	groupRepo      repositories.GroupRepository
	teamRepo       repositories.TeamRepository
}

func NewPredictionService(
	predictionRepo repositories.PredictionRepository,
	membershipRepo repositories.MembershipRepository,
	groupRepo      repositories.GroupRepository,
	teamRepo       repositories.TeamRepository,
) PredictionService {
	return &predictionService{
		predictionRepo: predictionRepo,
		membershipRepo: membershipRepo,
		groupRepo:      groupRepo,
		teamRepo:       teamRepo,
	}
}

func (s *predictionService) Save(ctx context.Context, input SavePredictionInput) (*models.Prediction, error) {
	group, err := s.groupRepo.GetByID(ctx, input.GroupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.Finished {
		return nil, ErrGroupFinished
	}

	teams, err := s.teamRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams for validation: %w", err)
	}
	if err := validatePrediction(input.Matrix, input.Rounds, teams); err != nil {
		return nil, err
	}

	if err := s.ensureMembership(ctx, input.UserID, group); err != nil {
		return nil, err
	}

	prediction := &models.Prediction{
		UserID:  input.UserID,
		GroupID: input.GroupID,
		Matrix:  input.Matrix,
		Rounds:  input.Rounds,
	}
	if prediction.Matrix == nil {
		prediction.Matrix = models.ScoreMatrix{}
	}
	if prediction.Rounds == nil {
		prediction.Rounds = models.RoundPicks{}
	}

	if err := s.predictionRepo.Upsert(ctx, prediction); err != nil {
		if errors.Is(err, repositories.ErrPredictionInvalid) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}
	return prediction, nil
}

func (s *predictionService) GetForUser(ctx context.Context, userID, groupID int) (*models.Prediction, error) {
	prediction, err := s.predictionRepo.GetByUserAndGroup(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return prediction, nil
}

// ensureMembership регистрирует пользователя в группе при первом
// сохранении. Для платных групп без завершённого платежа сохранение
// блокируется.
func (s *predictionService) ensureMembership(ctx context.Context, userID int, group *models.Group) error {
	member, err := s.membershipRepo.GetByUserAndGroup(ctx, userID, group.ID)
	if err != nil {
		if !errors.Is(err, repositories.ErrMembershipNotFound) {
			return err
		}
		if group.Fee > 0 {
			return ErrPaymentRequired
		}
		member = &models.Membership{UserID: userID, GroupID: group.ID}
		if createErr := s.membershipRepo.Create(ctx, member); createErr != nil {
			if errors.Is(createErr, repositories.ErrMembershipConflict) {
				return nil
			}
			return fmt.Errorf("failed to create membership: %w", createErr)
		}
		return nil
	}

	if group.Fee > 0 {
		if member.Payment == nil {
			return ErrPaymentRequired
		}
		if !member.Payment.Completed {
			return ErrPaymentPending
		}
	}
	return nil
}

// validatePrediction проверяет матрицу группового этапа и выборы
// раундов против реестра сборных.
func validatePrediction(matrix models.ScoreMatrix, rounds models.RoundPicks, teams []models.Team) error {
	stageGroups := make(map[int]int, len(teams))
	for _, team := range teams {
		stageGroups[team.ID] = team.StageGroup
	}

	for rowID, row := range matrix {
		rowGroup, ok := stageGroups[rowID]
		if !ok {
			return ErrTeamUnknown
		}
		for colID, score := range row {
			if rowID == colID {
				return ErrSelfPairPrediction
			}
			colGroup, ok := stageGroups[colID]
			if !ok {
				return ErrTeamUnknown
			}
			if rowGroup != colGroup {
				return ErrStageGroupMismatch
			}
			if score < 0 {
				return ErrScoreNegative
			}
		}
	}

	knownRounds := make(map[int]bool, len(models.RoundSizes))
	for _, size := range models.RoundSizes {
		knownRounds[size] = true
	}
	for size, picks := range rounds {
		if !knownRounds[size] {
			return ErrRoundUnknown
		}
		if len(picks) > size {
			return ErrRoundOverflow
		}
		for _, teamID := range picks {
			if _, ok := stageGroups[teamID]; !ok {
				return ErrTeamUnknown
			}
		}
	}
	return nil
}
