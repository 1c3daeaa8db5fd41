package dto

// BalanceResponse is a user's balance summary in minor units.
type BalanceResponse struct {
	Current int64 `json:"current"`
	Spent   int64 `json:"spent"`
}

// BalanceAdjustRequest applies a signed delta on behalf of an admin.
type BalanceAdjustRequest struct {
	ActorID int64  `json:"actor_id"`
	Delta   int64  `json:"delta"`
	Reason  string `json:"reason"`
}
