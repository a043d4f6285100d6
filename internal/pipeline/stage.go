package pipeline

// Stage is the position of a pipeline in its lifecycle:
//
//	unconfigured -> configuring -> configured -> building -> built
//
// Configuring is also entered from built (reconfigure in place) and from
// unconfigured after a purge. Any failed step moves to failed.
type Stage int

const (
	StageUnconfigured Stage = iota
	StageConfiguring
	StageConfigured
	StageBuilding
	StageBuilt
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageUnconfigured:
		return "unconfigured"
	case StageConfiguring:
		return "configuring"
	case StageConfigured:
		return "configured"
	case StageBuilding:
		return "building"
	case StageBuilt:
		return "built"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}
