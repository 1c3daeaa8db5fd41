package auth

import "github.com/polkiloo/quickcart/internal/domain/model"

// Authorizer is the explicit capability consulted before admin-triggered
// transitions. It is injected into use cases instead of being read from
// ambient state inside handlers.
type Authorizer interface {
	CanAdminister(actor model.Actor) bool
}

// StaticAuthorizer authorizes a fixed set of admin ids plus the system actor.
type StaticAuthorizer struct {
	adminIDs map[int64]struct{}
}

// NewStaticAuthorizer builds StaticAuthorizer from the configured id list.
func NewStaticAuthorizer(ids []int64) *StaticAuthorizer {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &StaticAuthorizer{adminIDs: set}
}

func (a *StaticAuthorizer) CanAdminister(actor model.Actor) bool {
	if actor.Type == model.ActorTypeSystem {
		return true
	}
	if actor.Type != model.ActorTypeAdmin {
		return false
	}
	_, ok := a.adminIDs[actor.ID]
	return ok
}
