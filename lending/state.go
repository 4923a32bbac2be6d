package lending

import "equiplend/models"

// Event is a lifecycle trigger applied to a request.
type Event string

const (
	EventCreate  Event = "create"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventReturn  Event = "return"
)

// Transition returns the state reached by applying ev in from.
// from is "" for EventCreate. Illegal moves leave the request untouched and report
// the most specific error kind: approve/reject need PENDING (ErrAlreadyProcessed),
// return needs APPROVED (ErrReturnNotApplicable), everything else is ErrInvalidTransition.
// A stored status outside the known set is never "already processed".
func Transition(from models.Status, ev Event) (models.Status, error) {
	if ev != EventCreate && !from.Valid() {
		return from, ErrInvalidTransition
	}
	switch ev {
	case EventCreate:
		if from == "" {
			return models.StatusPending, nil
		}
	case EventApprove:
		if from == models.StatusPending {
			return models.StatusApproved, nil
		}
		return from, ErrAlreadyProcessed
	case EventReject:
		if from == models.StatusPending {
			return models.StatusRejected, nil
		}
		return from, ErrAlreadyProcessed
	case EventReturn:
		if from == models.StatusApproved {
			return models.StatusReturned, nil
		}
		return from, ErrReturnNotApplicable
	}
	return from, ErrInvalidTransition
}

// quantityDelta is the change to available_quantity caused by ev.
func quantityDelta(ev Event) int {
	switch ev {
	case EventApprove:
		return -1
	case EventReturn:
		return 1
	}
	return 0
}
