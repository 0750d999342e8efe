package classify

// Level is one of the four classification outcomes (§4.4).
type Level string

const (
	LevelBlacklisted Level = "BLACKLISTED"
	LevelRed         Level = "RED"
	LevelYellow      Level = "YELLOW"
	LevelGreen       Level = "GREEN"
)

// LevelProperties describes the execution semantics associated with a Level.
type LevelProperties struct {
	AutoExecute      bool
	RequiresApproval bool
	SurfacesToUser   bool
}

var levelProperties = map[Level]LevelProperties{
	LevelBlacklisted: {AutoExecute: false, RequiresApproval: false, SurfacesToUser: true},
	LevelRed:         {AutoExecute: false, RequiresApproval: true, SurfacesToUser: true},
	LevelYellow:      {AutoExecute: true, RequiresApproval: false, SurfacesToUser: true},
	LevelGreen:       {AutoExecute: true, RequiresApproval: false, SurfacesToUser: false},
}

// Properties returns the execution semantics of l.
func (l Level) Properties() LevelProperties {
	return levelProperties[l]
}

// Decision is the pure-function result of classifying one command against
// a persona and the policy registry (§3, §4.4).
type Decision struct {
	Level          Level
	MatchedPattern string
	Reason         string
	PolicyUsed     string
	PersonaID      string
}
