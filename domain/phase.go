package domain

// Phase is the turn step. Draw is hidden and resolved by the server.
type Phase int

const (
	PhaseDraw Phase = iota
	PhaseSetup
	PhaseMain
	PhaseCommit
	PhaseScoring
)

const PhaseCount = 5

var phaseNames = [PhaseCount]string{"draw", "setup", "main", "commit", "scoring"}

func (p Phase) Valid() bool {
	return p >= 0 && p < PhaseCount
}

func (p Phase) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return phaseNames[p]
}
