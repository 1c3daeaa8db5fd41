package model

// ActorType classifies who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

// Actor identifies the initiator of a state transition. It is passed
// explicitly into any operation that requires authorization instead of being
// looked up from ambient state.
type Actor struct {
	ID   int64
	Type ActorType
}

// SystemActor is used for transitions driven by background processes.
var SystemActor = Actor{ID: 0, Type: ActorTypeSystem}
