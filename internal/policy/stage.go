// AngelaMos | 2026
// stage.go

package policy

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageNewLead              Stage = "NewLead"
	StageContactMade          Stage = "ContactMade"
	StageDiscoveryCompleted   Stage = "DiscoveryCompleted"
	StageQualifiedOpportunity Stage = "QualifiedOpportunity"
	StageProposalSent         Stage = "ProposalSent"
	StageNegotiationDecision  Stage = "NegotiationDecision"
	StageVerbalWin            Stage = "VerbalWin"
	StageClosedWon            Stage = "ClosedWon"
	StageClosedLost           Stage = "ClosedLost"
)

// activeStages is the pipeline order. Position in this slice is the rank
// used by the transition rules.
var activeStages = []Stage{
	StageNewLead,
	StageContactMade,
	StageDiscoveryCompleted,
	StageQualifiedOpportunity,
	StageProposalSent,
	StageNegotiationDecision,
	StageVerbalWin,
}

var terminalStages = map[Stage]struct{}{
	StageClosedWon:  {},
	StageClosedLost: {},
}

var stageDisplayNames = map[Stage]string{
	StageNewLead:              "New Lead",
	StageContactMade:          "Contact Made",
	StageDiscoveryCompleted:   "Discovery Completed",
	StageQualifiedOpportunity: "Qualified Opportunity",
	StageProposalSent:         "Proposal Sent",
	StageNegotiationDecision:  "Negotiation / Decision",
	StageVerbalWin:            "Verbal Win",
	StageClosedWon:            "Closed Won",
	StageClosedLost:           "Closed Lost",
}

// Stages returns all nine stages: the active pipeline in order, then
// ClosedWon and ClosedLost.
func Stages() []Stage {
	out := make([]Stage, 0, len(activeStages)+len(terminalStages))
	out = append(out, activeStages...)
	return append(out, StageClosedWon, StageClosedLost)
}

func ActiveStages() []Stage {
	out := make([]Stage, len(activeStages))
	copy(out, activeStages)
	return out
}

func ParseStage(s string) (Stage, error) {
	s = strings.TrimSpace(s)
	for _, st := range Stages() {
		if s == string(st) || s == stageDisplayNames[st] {
			return st, nil
		}
	}
	return "", fmt.Errorf("parse stage %q: %w", s, ErrUnknownStage)
}

func (s Stage) Valid() bool {
	_, ok := stageDisplayNames[s]
	return ok
}

func (s Stage) IsTerminal() bool {
	_, ok := terminalStages[s]
	return ok
}

func (s Stage) DisplayName() string {
	if name, ok := stageDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

func (s Stage) String() string {
	return string(s)
}

// rank returns the position of an active stage. Terminal and unknown
// stages have no rank.
func (s Stage) rank() (int, bool) {
	for i, st := range activeStages {
		if st == s {
			return i, true
		}
	}
	return -1, false
}

// Next returns the immediate active successor, if any.
func (s Stage) Next() (Stage, bool) {
	i, ok := s.rank()
	if !ok || i+1 >= len(activeStages) {
		return "", false
	}
	return activeStages[i+1], true
}
