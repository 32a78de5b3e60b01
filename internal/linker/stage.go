package linker

// MatchStage is one step of the matching cascade.
type MatchStage int

// Cascade stages in evaluation order.
const (
	StageName MatchStage = iota + 1
	StageAlias
	StageSimilarName
	StageSimilarAlias
)

// Stages returns the cascade in evaluation order.
func Stages() []MatchStage {
	return []MatchStage{StageName, StageAlias, StageSimilarName, StageSimilarAlias}
}

func (s MatchStage) String() string {
	switch s {
	case StageName:
		return "name"
	case StageAlias:
		return "alias"
	case StageSimilarName:
		return "similar_name"
	case StageSimilarAlias:
		return "similar_alias"
	default:
		return "unknown"
	}
}
