package domain

import "strings"

type Status string

const (
	StatusNew             Status = "new"
	StatusNeedInfo        Status = "need_info"
	StatusInReview        Status = "in_review"
	StatusSubmitted       Status = "submitted"
	StatusWaitingResponse Status = "waiting_response"
	StatusApproved        Status = "approved"
	StatusResolved        Status = "resolved"
	StatusRejected        Status = "rejected"
)

// ParseStatus accepts the canonical vocabulary plus the legacy aliases
// processing (in_review) and settled (resolved).
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusNew:
		return StatusNew, true
	case StatusNeedInfo:
		return StatusNeedInfo, true
	case StatusInReview, "processing":
		return StatusInReview, true
	case StatusSubmitted:
		return StatusSubmitted, true
	case StatusWaitingResponse:
		return StatusWaitingResponse, true
	case StatusApproved:
		return StatusApproved, true
	case StatusResolved, "settled":
		return StatusResolved, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

var transitions = map[Status][]Status{
	StatusNew:             {StatusInReview, StatusNeedInfo, StatusRejected},
	StatusInReview:        {StatusNeedInfo, StatusSubmitted, StatusApproved, StatusRejected},
	StatusNeedInfo:        {StatusInReview, StatusRejected},
	StatusSubmitted:       {StatusWaitingResponse, StatusApproved, StatusRejected},
	StatusWaitingResponse: {StatusInReview, StatusNeedInfo, StatusApproved, StatusRejected},
	StatusApproved:        {StatusResolved},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
// Settlement bypasses this table and forces resolved.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
