package models

// Team — сборная турнира. Name хранит ISO-код страны, StageGroup —
// номер группы группового этапа (1..N).
type Team struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	StageGroup int    `json:"group"`
}
