package client

import (
	"context"

	"github.com/ppenca/penca/models"
	"golang.org/x/sync/errgroup"
)

// WizardData — всё, что нужно мастеру прогнозов до первого рендера.
type WizardData struct {
	Teams      []models.Team
	Prediction *models.Prediction
}

// LoadWizardData загружает сборные и сохранённый прогноз параллельно;
// порядок между запросами не важен, но мастер не строится, пока не
// завершились оба. При отмене контекста (уход со страницы) поздние
// результаты отбрасываются вместе с ошибкой отмены.
func (c *Client) LoadWizardData(ctx context.Context, groupID int) (*WizardData, error) {
	g, ctx := errgroup.WithContext(ctx)

	var teams []models.Team
	var prediction *models.Prediction

	g.Go(func() error {
		var err error
		teams, err = c.GetTeams(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		prediction, err = c.GetPrediction(ctx, groupID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &WizardData{
		Teams:      teams,
		Prediction: prediction,
	}, nil
}
