package service

import (
	"context"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

// ScoreTable maps ledger actions to signed activity deltas. Actions without an
// entry score zero.
type ScoreTable map[models.ActionType]int

// NewScoreTable builds the table from configuration.
func NewScoreTable(cfg config.ActivityConfig) ScoreTable {
	return ScoreTable{
		models.ActionCreateResource:    cfg.Resource.Add,
		models.ActionDeleteResource:    cfg.Resource.Delete,
		models.ActionLikeResource:      cfg.Resource.Like,
		models.ActionUnlikeResource:    cfg.Resource.Unlike,
		models.ActionDislikeResource:   cfg.Resource.Dislike,
		models.ActionUndislikeResource: cfg.Resource.Undislike,
		models.ActionViewResource:      cfg.Resource.View,

		models.ActionCreateInteraction:    cfg.Interaction.Add,
		models.ActionUpdateInteraction:    cfg.Interaction.Update,
		models.ActionDeleteInteraction:    cfg.Interaction.Delete,
		models.ActionLikeInteraction:      cfg.Interaction.Like,
		models.ActionUnlikeInteraction:    cfg.Interaction.Unlike,
		models.ActionDislikeInteraction:   cfg.Interaction.Dislike,
		models.ActionUndislikeInteraction: cfg.Interaction.Undislike,
		models.ActionRateCourse:           cfg.Interaction.Rate,
	}
}

// Delta returns the configured delta for action.
func (t ScoreTable) Delta(action models.ActionType) int {
	return t[action]
}

// ActivityAccumulator applies score deltas to users. Scores are unbounded in
// both directions.
type ActivityAccumulator struct {
	table ScoreTable
}

// NewActivityAccumulator wraps a score table.
func NewActivityAccumulator(table ScoreTable) *ActivityAccumulator {
	if table == nil {
		table = ScoreTable{}
	}
	return &ActivityAccumulator{table: table}
}

// Apply shifts userID's score by the delta configured for action and returns
// the delta applied.
func (a *ActivityAccumulator) Apply(ctx context.Context, users repository.UserRepository, userID uint, action models.ActionType) (int, error) {
	delta := a.table.Delta(action)
	if delta == 0 {
		return 0, nil
	}
	if err := users.AddActivity(ctx, userID, delta); err != nil {
		return 0, translate(err, ErrUserNotFound)
	}
	return delta, nil
}
