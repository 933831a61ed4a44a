package domain

// LifecycleState of a Patient or Complex.
type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateTrashed LifecycleState = "trashed"
	StatePurged  LifecycleState = "purged"
)

func stateOf(active bool) LifecycleState {
	if active {
		return StateActive
	}
	return StateTrashed
}
