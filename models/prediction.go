package models

import "time"

// RoundSizes — фиксированный набор раундов плей-офф, от 1/8 финала до
// победителя. Порядок важен для отображения.
var RoundSizes = []int{16, 8, 4, 1}

// ScoreMatrix maps row-team id -> column-team id -> predicted goals scored
// by the row team in that match. A missing key means "no prediction for
// this match" and must stay missing on round-trip, never become zero.
type ScoreMatrix map[int]map[int]int

// RoundPicks maps a round size (16, 8, 4 or 1) to the ordered team ids
// predicted to reach that round. len(picks) never exceeds the round size.
type RoundPicks map[int][]int

type Prediction struct {
	ID        int         `json:"id"`
	UserID    int         `json:"user_id"`
	GroupID   int         `json:"group_id"`
	Matrix    ScoreMatrix `json:"group"`
	Rounds    RoundPicks  `json:"round"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Score возвращает прогноз для пары (rowTeam, colTeam), если он есть.
func (m ScoreMatrix) Score(rowTeam, colTeam int) (int, bool) {
	row, ok := m[rowTeam]
	if !ok {
		return 0, false
	}
	score, ok := row[colTeam]
	return score, ok
}

// SetScore записывает прогноз; Clear-семантика через DeleteScore.
func (m ScoreMatrix) SetScore(rowTeam, colTeam, score int) {
	row, ok := m[rowTeam]
	if !ok {
		row = make(map[int]int)
		m[rowTeam] = row
	}
	row[colTeam] = score
}

// Clone делает глубокую копию матрицы; nil остаётся пустой матрицей.
func (m ScoreMatrix) Clone() ScoreMatrix {
	clone := make(ScoreMatrix, len(m))
	for rowID, row := range m {
		rowCopy := make(map[int]int, len(row))
		for colID, score := range row {
			rowCopy[colID] = score
		}
		clone[rowID] = rowCopy
	}
	return clone
}

// Clone делает глубокую копию выборов раундов.
func (p RoundPicks) Clone() RoundPicks {
	clone := make(RoundPicks, len(p))
	for size, picks := range p {
		picksCopy := make([]int, len(picks))
		copy(picksCopy, picks)
		clone[size] = picksCopy
	}
	return clone
}

// DeleteScore removes a prediction for the pair, keeping absence absent.
func (m ScoreMatrix) DeleteScore(rowTeam, colTeam int) {
	if row, ok := m[rowTeam]; ok {
		delete(row, colTeam)
		if len(row) == 0 {
			delete(m, rowTeam)
		}
	}
}
