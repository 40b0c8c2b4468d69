package service

import (
	"context"
	"time"

	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

// EngagementState is a user's derived engagement on one target.
type EngagementState struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

// Holds reports whether the reaction is currently on.
func (s EngagementState) Holds(reaction models.Reaction) bool {
	if reaction == models.ReactionLike {
		return s.Liked
	}
	return s.Disliked
}

func (s *EngagementState) set(reaction models.Reaction, on bool) {
	if reaction == models.ReactionLike {
		s.Liked = on
		return
	}
	s.Disliked = on
}

// EngagementResolver derives engagement from the ledger. A reaction is held
// when the most recent entry of its on/off pair is the "on" kind.
type EngagementResolver struct{}

// Resolve returns both reactions of userID on the target.
func (r EngagementResolver) Resolve(ctx context.Context, history repository.HistoryRepository, userID uint, kind models.TargetKind, targetID uint) (EngagementState, error) {
	state, _, err := r.resolve(ctx, history, userID, kind, targetID)
	return state, err
}

// resolve also returns the newest engagement timestamp seen for the pair, the
// floor for the next entry.
func (EngagementResolver) resolve(ctx context.Context, history repository.HistoryRepository, userID uint, kind models.TargetKind, targetID uint) (EngagementState, time.Time, error) {
	var (
		state  EngagementState
		newest time.Time
	)
	for _, reaction := range []models.Reaction{models.ReactionLike, models.ReactionDislike} {
		kinds, err := models.ReactionActions(kind, reaction)
		if err != nil {
			return EngagementState{}, time.Time{}, err
		}
		latest, err := history.Latest(ctx, userID, targetID, kinds.Set())
		if err != nil {
			return EngagementState{}, time.Time{}, storageFault(err)
		}
		if latest == nil {
			continue
		}
		state.set(reaction, latest.ActionType == kinds.On)
		if latest.Timestamp.After(newest) {
			newest = latest.Timestamp
		}
	}
	return state, newest, nil
}
