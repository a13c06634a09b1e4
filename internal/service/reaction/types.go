package reaction

import "time"

type ReactRequest struct {
	AnimalID uint64 `json:"animal_id" validate:"required"`
}

// ReactionResult echoes the stored reaction. The match fields are set
// when a like completes a mutual pair; MatchCreated is true only for the
// call that created the match.
type ReactionResult struct {
	AnimalID     uint64    `json:"animal_id"`
	FromUserID   uint64    `json:"from_user_id"`
	Result       string    `json:"result"`
	CreatedAt    time.Time `json:"created_at"`
	MatchCreated bool      `json:"match_created"`
	MatchID      *uint64   `json:"match_id,omitempty"`
	MatchUserID  *uint64   `json:"match_user_id,omitempty"`
}

type ListRequest struct {
	PageToken string `json:"page_token,omitempty"`
	Limit     int    `json:"limit,omitempty" validate:"min=0,max=100"`
}

type AnimalSummary struct {
	ID          uint64  `json:"id"`
	OwnerUserID uint64  `json:"owner_user_id"`
	Name        *string `json:"name,omitempty"`
	Species     string  `json:"species"`
	City        *string `json:"city,omitempty"`
	Status      string  `json:"status"`
}

type UserSummary struct {
	ID       uint64 `json:"id"`
	IsActive bool   `json:"is_active"`
}

type OutgoingLike struct {
	ID        uint64        `json:"id"`
	Animal    AnimalSummary `json:"animal"`
	CreatedAt time.Time     `json:"created_at"`
}

type ListOutgoingLikesResponse struct {
	Likes         []OutgoingLike `json:"likes"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type IncomingLike struct {
	ID        uint64        `json:"id"`
	FromUser  UserSummary   `json:"from_user"`
	Animal    AnimalSummary `json:"animal"`
	CreatedAt time.Time     `json:"created_at"`
}

type ListIncomingLikesResponse struct {
	Likes         []IncomingLike `json:"likes"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type CountIncomingLikesRequest struct{}

type CountIncomingLikesResponse struct {
	Count uint64 `json:"count"`
}

// Match is one confirmed pair seen from the caller's side.
type Match struct {
	ID            uint64    `json:"id"`
	CounterpartID uint64    `json:"counterpart_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListMatchesResponse struct {
	Matches       []Match `json:"matches"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}
