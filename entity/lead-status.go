package entity

import "fmt"

type LeadStatus string

const (
	StatusNew              LeadStatus = "new"
	StatusContacted        LeadStatus = "contacted"
	StatusQualified        LeadStatus = "qualified"
	StatusViewingScheduled LeadStatus = "viewing_scheduled"
	StatusViewingCompleted LeadStatus = "viewing_completed"
	StatusNegotiating      LeadStatus = "negotiating"
	StatusProposalSent     LeadStatus = "proposal_sent"
	StatusClosedWon        LeadStatus = "closed_won"
	StatusClosedLost       LeadStatus = "closed_lost"
	StatusNurturing        LeadStatus = "nurturing"
)

// forward lists the step each open status advances to.
var forward = map[LeadStatus][]LeadStatus{
	StatusNew:              {StatusContacted},
	StatusContacted:        {StatusQualified},
	StatusQualified:        {StatusViewingScheduled},
	StatusViewingScheduled: {StatusViewingCompleted},
	StatusViewingCompleted: {StatusNegotiating},
	StatusNegotiating:      {StatusProposalSent},
	StatusProposalSent:     {StatusClosedWon, StatusClosedLost},
	StatusNurturing:        {StatusContacted},
}

func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusViewingScheduled, StatusViewingCompleted,
		StatusNegotiating, StatusProposalSent, StatusClosedWon, StatusClosedLost, StatusNurturing:
		return true
	}
	return false
}

func (s LeadStatus) IsClosed() bool {
	return s == StatusClosedWon || s == StatusClosedLost
}

// OrNew treats a lead that never had a status as new.
func (s LeadStatus) OrNew() LeadStatus {
	if s == "" {
		return StatusNew
	}
	return s
}

// CanTransitionTo allows the forward step, parking any open lead in nurturing
// and losing any open lead. Closed leads never move.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	from := s.OrNew()
	if !from.Valid() || !next.Valid() || from.IsClosed() || from == next {
		return false
	}
	if next == StatusNurturing || next == StatusClosedLost {
		return true
	}
	for _, allowed := range forward[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s LeadStatus) Transition(next LeadStatus) (LeadStatus, error) {
	if !next.Valid() {
		return s, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.OrNew(), next)
	}
	return next, nil
}
