package conversation

import "github.com/wolfman30/careconnect/internal/clinic"

const maxSnapshots = 20

// Snapshot is an immutable copy of the mutable parts of a State.
type Snapshot struct {
	Slots              Slots                   `json:"slots"`
	Stage              Stage                   `json:"stage"`
	SuggestedTreatment *TreatmentType          `json:"suggested_treatment,omitempty"`
	Asked              map[string]int          `json:"asked"`
	RecentResponses    []string                `json:"recent_responses"`
	Messages           []Message               `json:"messages"`
	Recommendations    []clinic.Recommendation `json:"recommendations,omitempty"`
}

func (snap Snapshot) copy() Snapshot {
	out := Snapshot{
		Slots:           snap.Slots.clone(),
		Stage:           snap.Stage,
		Asked:           make(map[string]int, len(snap.Asked)),
		RecentResponses: append([]string(nil), snap.RecentResponses...),
		Messages:        append([]Message(nil), snap.Messages...),
		Recommendations: append([]clinic.Recommendation(nil), snap.Recommendations...),
	}
	for k, v := range snap.Asked {
		out.Asked[k] = v
	}
	if snap.SuggestedTreatment != nil {
		out.SuggestedTreatment = treatmentPtr(*snap.SuggestedTreatment)
	}
	return out
}

func (s *State) snapshot() Snapshot {
	return Snapshot{
		Slots:              s.Slots,
		Stage:              s.Stage,
		SuggestedTreatment: s.SuggestedTreatment,
		Asked:              s.Asked,
		RecentResponses:    s.RecentResponses,
		Messages:           s.Messages,
		Recommendations:    s.Recommendations,
	}.copy()
}

func (s *State) restore(snap Snapshot) {
	c := snap.copy()
	s.Slots = c.Slots
	s.Stage = c.Stage
	s.SuggestedTreatment = c.SuggestedTreatment
	s.Asked = c.Asked
	s.RecentResponses = c.RecentResponses
	s.Messages = c.Messages
	s.Recommendations = c.Recommendations
}

// checkpoint records the current state on the undo stack and drops any
// redo history.
func (s *State) checkpoint() {
	s.Undo = appendCapped(s.Undo, s.snapshot())
	s.Redo = nil
}

// UndoTurn restores the state from before the last turn.
func (s *State) UndoTurn() bool {
	if len(s.Undo) == 0 {
		return false
	}
	prev := s.Undo[len(s.Undo)-1]
	s.Undo = s.Undo[:len(s.Undo)-1]
	s.Redo = appendCapped(s.Redo, s.snapshot())
	s.restore(prev)
	return true
}

// RedoTurn re-applies a turn removed by UndoTurn.
func (s *State) RedoTurn() bool {
	if len(s.Redo) == 0 {
		return false
	}
	next := s.Redo[len(s.Redo)-1]
	s.Redo = s.Redo[:len(s.Redo)-1]
	s.Undo = appendCapped(s.Undo, s.snapshot())
	s.restore(next)
	return true
}

func appendCapped(stack []Snapshot, snap Snapshot) []Snapshot {
	stack = append(stack, snap)
	if len(stack) > maxSnapshots {
		stack = stack[len(stack)-maxSnapshots:]
	}
	return stack
}
