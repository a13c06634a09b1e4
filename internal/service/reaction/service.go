package reaction

import (
	"context"
	"errors"

	"github.com/oggyb/pature/internal/app"
	"github.com/oggyb/pature/internal/db"
	svcErr "github.com/oggyb/pature/internal/errors"
	"github.com/oggyb/pature/internal/events"
	"github.com/oggyb/pature/internal/matching"
	"github.com/oggyb/pature/internal/repository"
	"github.com/oggyb/pature/internal/server"
)

// Service implements the Reaction gRPC API.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx    *app.AppContext
	animals   *repository.AnimalRepository
	reactions *repository.ReactionRepository
	matches   *repository.MatchRepository
	engine    *matching.Engine
}

// NewReactionService creates a new Reaction service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via Animal, Reaction and Match repositories)
//   - RedisCache for the incoming-like counter
//   - Events for match.created
func NewReactionService(appCtx *app.AppContext) *Service {
	animals := repository.NewAnimalRepository(appCtx.DB)
	reactions := repository.NewReactionRepository(appCtx.DB)
	matches := repository.NewMatchRepository(appCtx.DB)
	return &Service{
		appCtx:    appCtx,
		animals:   animals,
		reactions: reactions,
		matches:   matches,
		engine:    matching.NewEngine(animals, reactions, matches),
	}
}

var _ ReactionServer = (*Service)(nil)

// LikeAnimal records a like and resolves a possible match.
//
// Behavior:
//   - The animal must exist and be active, otherwise NotFound.
//   - Liking your own animal is InvalidArgument.
//   - A repeat like overwrites the previous reaction.
//   - When the owner already likes one of the caller's animals, the match
//     is fetched or created; a new match publishes match.created.
func (s *Service) LikeAnimal(ctx context.Context, req *ReactRequest) (*ReactionResult, error) {
	userID, like, err := s.react(ctx, req, db.ResultLike)
	if err != nil {
		return nil, err
	}
	resp := result(like)

	match, created, err := s.engine.OnLikeRecorded(ctx, userID, like.AnimalID)
	if err != nil {
		s.appCtx.Logger.Error("LikeAnimal: match resolution failed", "user_id", userID, "animal_id", like.AnimalID, "err", err)
		return nil, svcErr.Map(err)
	}
	if match == nil {
		return resp, nil
	}

	other := match.Other(userID)
	resp.MatchCreated = created
	resp.MatchID = &match.ID
	resp.MatchUserID = &other

	if created {
		s.appCtx.Metrics.MatchCreated()
		s.appCtx.Logger.Info("match created", "match_id", match.ID, "user_id1", match.UserID1, "user_id2", match.UserID2)

		err := s.appCtx.Events.PublishMatchCreated(ctx, events.MatchCreated{
			MatchID:     match.ID,
			UserID1:     match.UserID1,
			UserID2:     match.UserID2,
			TriggeredBy: userID,
			AnimalID:    like.AnimalID,
			CreatedAt:   match.CreatedAt,
		})
		if err != nil {
			// the match row is the source of truth
			s.appCtx.Logger.Warn("LikeAnimal: publish match.created failed", "match_id", match.ID, "err", err)
		}
	}
	return resp, nil
}

// DislikeAnimal records a dislike. It never creates a match and leaves
// existing matches in place.
func (s *Service) DislikeAnimal(ctx context.Context, req *ReactRequest) (*ReactionResult, error) {
	_, like, err := s.react(ctx, req, db.ResultDislike)
	if err != nil {
		return nil, err
	}
	return result(like), nil
}

// react runs the checks shared by likes and dislikes and stores the
// reaction.
func (s *Service) react(ctx context.Context, req *ReactRequest, outcome string) (uint64, *db.AnimalLike, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return 0, nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return 0, nil, err
	}
	s.appCtx.Logger.Debug("reaction called", "user_id", userID, "animal_id", req.AnimalID, "result", outcome)

	animal, err := s.animals.Get(ctx, req.AnimalID)
	if err != nil && !errors.Is(err, svcErr.ErrNotFound) {
		s.appCtx.Logger.Error("reaction: animal lookup failed", "animal_id", req.AnimalID, "err", err)
		return 0, nil, svcErr.Map(err)
	}
	if animal == nil || animal.Status != db.AnimalStatusActive {
		return 0, nil, svcErr.NotFound("animal not found")
	}
	if animal.OwnerUserID == userID {
		return 0, nil, svcErr.InvalidArgument("cannot react to your own animal")
	}

	like, err := s.reactions.Record(ctx, userID, animal.ID, outcome)
	if err != nil {
		s.appCtx.Logger.Error("reaction: record failed", "user_id", userID, "animal_id", animal.ID, "err", err)
		return 0, nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.ReactionRecorded(outcome)

	// like -> dislike and dislike -> like both move the owner's counter
	if s.appCtx.RedisCache != nil {
		if err := s.appCtx.RedisCache.InvalidateIncomingLikeCount(ctx, animal.OwnerUserID); err != nil {
			s.appCtx.Logger.Warn("reaction: invalidate like count failed", "owner_id", animal.OwnerUserID, "err", err)
		}
	}
	return userID, like, nil
}

func result(like *db.AnimalLike) *ReactionResult {
	return &ReactionResult{
		AnimalID:   like.AnimalID,
		FromUserID: like.FromUserID,
		Result:     like.Result,
		CreatedAt:  like.CreatedAt,
	}
}

// ListOutgoingLikes returns animals the caller liked, newest first.
func (s *Service) ListOutgoingLikes(ctx context.Context, req *ListRequest) (*ListOutgoingLikesResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return nil, err
	}

	likes, next, err := s.reactions.ListOutgoing(ctx, userID, req.PageToken, req.Limit)
	if err != nil {
		return nil, s.listError("ListOutgoingLikes", err)
	}

	resp := &ListOutgoingLikesResponse{Likes: make([]OutgoingLike, 0, len(likes)), NextPageToken: next}
	for i := range likes {
		resp.Likes = append(resp.Likes, OutgoingLike{
			ID:        likes[i].ID,
			Animal:    animalSummary(likes[i].Animal),
			CreatedAt: likes[i].CreatedAt,
		})
	}
	return resp, nil
}

// ListIncomingLikes returns likes on the caller's animals, newest first.
func (s *Service) ListIncomingLikes(ctx context.Context, req *ListRequest) (*ListIncomingLikesResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return nil, err
	}

	likes, next, err := s.reactions.ListIncoming(ctx, userID, req.PageToken, req.Limit)
	if err != nil {
		return nil, s.listError("ListIncomingLikes", err)
	}

	resp := &ListIncomingLikesResponse{Likes: make([]IncomingLike, 0, len(likes)), NextPageToken: next}
	for i := range likes {
		item := IncomingLike{
			ID:        likes[i].ID,
			FromUser:  UserSummary{ID: likes[i].FromUserID},
			Animal:    animalSummary(likes[i].Animal),
			CreatedAt: likes[i].CreatedAt,
		}
		if u := likes[i].FromUser; u != nil {
			item.FromUser.IsActive = u.IsActive
		}
		resp.Likes = append(resp.Likes, item)
	}
	return resp, nil
}

// CountIncomingLikes returns how many likes the caller's animals have.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:incoming:count:userID).
//  2. On a miss or a Redis error, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountIncomingLikes(ctx context.Context, _ *CountIncomingLikesRequest) (*CountIncomingLikesResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	rdb := s.appCtx.RedisCache

	// try cache first
	if rdb != nil {
		n, hit, err := rdb.GetIncomingLikeCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("CountIncomingLikes: cache read failed", "user_id", userID, "err", err)
		} else if hit {
			return &CountIncomingLikesResponse{Count: uint64(n)}, nil
		}
	}

	// fallback: DB
	count, err := s.reactions.CountIncoming(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("CountIncomingLikes: count failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	if rdb != nil {
		if err := rdb.SetIncomingLikeCount(ctx, userID, count); err != nil {
			s.appCtx.Logger.Warn("CountIncomingLikes: cache write failed", "user_id", userID, "err", err)
		}
	}
	return &CountIncomingLikesResponse{Count: uint64(count)}, nil
}

// ListMatches returns the caller's matches, newest first.
func (s *Service) ListMatches(ctx context.Context, req *ListRequest) (*ListMatchesResponse, error) {
	userID, ok := server.UserIDFromContext(ctx)
	if !ok {
		return nil, svcErr.Map(svcErr.ErrInvalidToken)
	}
	if err := server.Validate(req); err != nil {
		return nil, err
	}

	matches, next, err := s.matches.ListForUser(ctx, userID, req.PageToken, req.Limit)
	if err != nil {
		return nil, s.listError("ListMatches", err)
	}

	resp := &ListMatchesResponse{Matches: make([]Match, 0, len(matches)), NextPageToken: next}
	for i := range matches {
		resp.Matches = append(resp.Matches, Match{
			ID:            matches[i].ID,
			CounterpartID: matches[i].Other(userID),
			CreatedAt:     matches[i].CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) listError(method string, err error) error {
	if errors.Is(err, svcErr.ErrInvalidArgument) {
		return svcErr.InvalidArgument("invalid page_token")
	}
	s.appCtx.Logger.Error(method+": query failed", "err", err)
	return svcErr.Map(err)
}

func animalSummary(a *db.Animal) AnimalSummary {
	if a == nil {
		return AnimalSummary{}
	}
	return AnimalSummary{
		ID:          a.ID,
		OwnerUserID: a.OwnerUserID,
		Name:        a.Name,
		Species:     a.Species,
		City:        a.City,
		Status:      a.Status,
	}
}
