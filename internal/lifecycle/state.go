package lifecycle

import "github.com/agentx-labs/unithost/internal/unit"

// State is a step of a run. A run moves through the states in order and
// never goes back.
type State int

const (
	Idle State = iota
	EnumeratingConfig
	InitPassExtensions
	InitPassAddOns
	ReconcilingExtensions
	ReconcilingAddOns
	AfterInitPassExtensions
	AfterInitPassAddOns
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case EnumeratingConfig:
		return "EnumeratingConfig"
	case InitPassExtensions:
		return "RunningInitPass(Extensions)"
	case InitPassAddOns:
		return "RunningInitPass(AddOns)"
	case ReconcilingExtensions:
		return "ReconcilingPersisted(Extensions)"
	case ReconcilingAddOns:
		return "ReconcilingPersisted(AddOns)"
	case AfterInitPassExtensions:
		return "RunningAfterInitPass(Extensions)"
	case AfterInitPassAddOns:
		return "RunningAfterInitPass(AddOns)"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

func initPass(c unit.Category) State {
	if c == unit.AddOn {
		return InitPassAddOns
	}
	return InitPassExtensions
}

func reconciling(c unit.Category) State {
	if c == unit.AddOn {
		return ReconcilingAddOns
	}
	return ReconcilingExtensions
}

func afterInitPass(c unit.Category) State {
	if c == unit.AddOn {
		return AfterInitPassAddOns
	}
	return AfterInitPassExtensions
}
