// Package wizard holds the two-step prediction form: the group-stage
// score matrix and the knockout-round selections. Both steps share one
// form state, so going back and forth never loses entered values, and
// the whole form is submitted as a single payload.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppenca/penca/models"
)

type Step int

const (
	StepGroupStage Step = iota
	StepRounds
)

var (
	ErrSubmitInFlight   = errors.New("wizard: submission already in flight")
	ErrWrongStep        = errors.New("wizard: submission is only allowed from the rounds step")
	ErrScoreNegative    = errors.New("wizard: score must not be negative")
	ErrSelfPair         = errors.New("wizard: a team cannot play against itself")
	ErrTeamUnknown      = errors.New("wizard: unknown team")
	ErrStageGroupMixed  = errors.New("wizard: teams are not in the same stage group")
	ErrRoundUnknown     = errors.New("wizard: unknown round size")
)

// Submitter отправляет собранный payload на бэкенд одним запросом.
type Submitter interface {
	SavePrediction(ctx context.Context, groupID int, matrix models.ScoreMatrix, rounds models.RoundPicks) error
}

// Wizard — общее состояние формы двух шагов мастера.
type Wizard struct {
	groupID   int
	teams     []models.Team
	teamsByID map[int]models.Team
	submitter Submitter

	step     Step
	matrix   models.ScoreMatrix
	rounds   models.RoundPicks
	inFlight bool
}

// New строит мастер, засеянный сохранённым прогнозом пользователя для
// этой группы; без сохранённого прогноза все поля пустые.
func New(groupID int, teams []models.Team, saved *models.Prediction, submitter Submitter) *Wizard {
	w := &Wizard{
		groupID:   groupID,
		teams:     teams,
		teamsByID: make(map[int]models.Team, len(teams)),
		submitter: submitter,
		step:      StepGroupStage,
		matrix:    models.ScoreMatrix{},
		rounds:    models.RoundPicks{},
	}
	for _, team := range teams {
		w.teamsByID[team.ID] = team
	}
	if saved != nil {
		w.matrix = saved.Matrix.Clone()
		w.rounds = saved.Rounds.Clone()
	}
	return w
}

func (w *Wizard) Step() Step     { return w.step }
func (w *Wizard) InFlight() bool { return w.inFlight }

// Next переводит с шага группового этапа на шаг раундов.
func (w *Wizard) Next() {
	if w.step == StepGroupStage {
		w.step = StepRounds
	}
}

// Back возвращает на шаг группового этапа; введённые значения обоих
// шагов сохраняются.
func (w *Wizard) Back() {
	if w.step == StepRounds {
		w.step = StepGroupStage
	}
}

// TeamsByStageGroup раскладывает сборные по группам этапа для сетки
// вводов шага A.
func (w *Wizard) TeamsByStageGroup() map[int][]models.Team {
	byGroup := make(map[int][]models.Team)
	for _, team := range w.teams {
		byGroup[team.StageGroup] = append(byGroup[team.StageGroup], team)
	}
	return byGroup
}

// SetScore записывает счёт rowTeam против colTeam. Валидация — это
// инлайн-ошибка формы, состояние при ошибке не меняется.
func (w *Wizard) SetScore(rowTeam, colTeam, score int) error {
	if rowTeam == colTeam {
		return ErrSelfPair
	}
	row, okRow := w.teamsByID[rowTeam]
	col, okCol := w.teamsByID[colTeam]
	if !okRow || !okCol {
		return ErrTeamUnknown
	}
	if row.StageGroup != col.StageGroup {
		return ErrStageGroupMixed
	}
	if score < 0 {
		return ErrScoreNegative
	}
	w.matrix.SetScore(rowTeam, colTeam, score)
	return nil
}

// ClearScore убирает прогноз пары: отсутствие значения — это "нет
// прогноза", а не ноль.
func (w *Wizard) ClearScore(rowTeam, colTeam int) {
	w.matrix.DeleteScore(rowTeam, colTeam)
}

func (w *Wizard) Score(rowTeam, colTeam int) (int, bool) {
	return w.matrix.Score(rowTeam, colTeam)
}

// SelectRound заменяет выбор раунда. Попытка выбрать больше команд,
// чем размер раунда, молча отбрасывается: предыдущий валидный выбор
// сохраняется. Это зеркалит поведение автокомплита формы.
func (w *Wizard) SelectRound(size int, teamIDs []int) error {
	if !knownRound(size) {
		return ErrRoundUnknown
	}
	for _, id := range teamIDs {
		if _, ok := w.teamsByID[id]; !ok {
			return ErrTeamUnknown
		}
	}
	if len(teamIDs) > size {
		return nil // silent clamp: keep the previous selection
	}
	picks := make([]int, len(teamIDs))
	copy(picks, teamIDs)
	w.rounds[size] = picks
	return nil
}

func (w *Wizard) RoundSelection(size int) []int {
	return w.rounds[size]
}

// Snapshot возвращает копии текущего состояния формы (для рендера и
// тестов); мутировать их безопасно.
func (w *Wizard) Snapshot() (models.ScoreMatrix, models.RoundPicks) {
	return w.matrix.Clone(), w.rounds.Clone()
}

// Submit отправляет обе части формы и идентификатор группы одним
// атомарным запросом. Разрешён только с шага раундов; повторная
// отправка во время полёта отклоняется. Ошибка отправки снимает флаг
// и оставляет форму как есть — пользователь может повторить.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.step != StepRounds {
		return ErrWrongStep
	}
	if w.inFlight {
		return ErrSubmitInFlight
	}

	w.inFlight = true
	defer func() { w.inFlight = false }()

	err := w.submitter.SavePrediction(ctx, w.groupID, w.matrix.Clone(), w.rounds.Clone())
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

func knownRound(size int) bool {
	for _, s := range models.RoundSizes {
		if s == size {
			return true
		}
	}
	return false
}
