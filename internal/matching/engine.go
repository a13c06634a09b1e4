// Package matching turns reciprocal likes into deduplicated matches.
package matching

import (
	"context"
	"fmt"

	"github.com/oggyb/pature/internal/db"
)

// AnimalOwners resolves the owner of a listing.
type AnimalOwners interface {
	OwnerOf(ctx context.Context, animalID uint64) (ownerID uint64, ok bool, err error)
}

// ReactionLookup answers the reciprocity question.
type ReactionLookup interface {
	HasLikedAnyOwnedBy(ctx context.Context, likerID, ownerID uint64) (bool, error)
}

// MatchStore persists matches; GetOrCreate must be safe under concurrent
// calls for the same pair.
type MatchStore interface {
	GetOrCreate(ctx context.Context, pair Pair) (*db.UserMatch, bool, error)
}

type Engine struct {
	animals   AnimalOwners
	reactions ReactionLookup
	matches   MatchStore
}

func NewEngine(animals AnimalOwners, reactions ReactionLookup, matches MatchStore) *Engine {
	return &Engine{animals: animals, reactions: reactions, matches: matches}
}

// OnLikeRecorded is called after fromUserID liked animalID. When the
// listing's owner already likes any listing of fromUserID, the match is
// fetched or created. It returns (nil, false, nil) when there is nothing
// to match: unknown listing, own listing, or no reciprocal like.
//
// The check and the insert are not isolated; the unique pair constraint
// in the store is what keeps racing mutual likes to one row.
func (e *Engine) OnLikeRecorded(ctx context.Context, fromUserID, animalID uint64) (*db.UserMatch, bool, error) {
	ownerID, ok, err := e.animals.OwnerOf(ctx, animalID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve owner: %w", err)
	}
	if !ok || ownerID == fromUserID {
		return nil, false, nil
	}

	mutual, err := e.reactions.HasLikedAnyOwnedBy(ctx, ownerID, fromUserID)
	if err != nil {
		return nil, false, fmt.Errorf("reciprocity check: %w", err)
	}
	if !mutual {
		return nil, false, nil
	}

	return e.GetOrCreateMatch(ctx, fromUserID, ownerID)
}

// GetOrCreateMatch normalizes the pair and resolves it in the store.
func (e *Engine) GetOrCreateMatch(ctx context.Context, a, b uint64) (*db.UserMatch, bool, error) {
	pair, err := NormalizePair(a, b)
	if err != nil {
		return nil, false, err
	}
	return e.matches.GetOrCreate(ctx, pair)
}
