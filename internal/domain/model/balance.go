package model

// BalanceSummary aggregates a user's pre-funded account balance in minor units.
type BalanceSummary struct {
	Current int64
	Spent   int64
}
