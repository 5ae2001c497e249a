package services

import (
	"context"
	"errors"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/repositories"
)

type TeamService interface {
	ListAll(ctx context.Context) ([]models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByStageGroup(ctx context.Context) (map[int][]models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
}

func NewTeamService(teamRepo repositories.TeamRepository) TeamService {
	return &teamService{teamRepo: teamRepo}
}

func (s *teamService) ListAll(ctx context.Context) ([]models.Team, error) {
	return s.teamRepo.ListAll(ctx)
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

// ListByStageGroup раскладывает сборные по группам группового этапа.
func (s *teamService) ListByStageGroup(ctx context.Context) (map[int][]models.Team, error) {
	teams, err := s.teamRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[int][]models.Team)
	for _, team := range teams {
		byGroup[team.StageGroup] = append(byGroup[team.StageGroup], team)
	}
	return byGroup, nil
}
