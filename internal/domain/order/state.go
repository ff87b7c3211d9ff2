package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	OnApproved(o *Order) (OrderState, error)
	OnFailed(o *Order, reason string) (OrderState, error)
	OnVoided(o *Order, reason string) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusApproved, StatusFailed, StatusVoided:
		return terminalState{status: s}, nil
	default:
		return nil, ErrInvalidStatus
	}
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) OnApproved(o *Order) (OrderState, error) {
	o.FailureReason = ""
	o.Delivery.assign()
	return terminalState{status: StatusApproved}, nil
}

func (pendingState) OnFailed(o *Order, reason string) (OrderState, error) {
	if reason != "" {
		o.FailureReason = reason
	}
	return terminalState{status: StatusFailed}, nil
}

func (pendingState) OnVoided(o *Order, reason string) (OrderState, error) {
	if reason != "" {
		o.FailureReason = reason
	}
	return terminalState{status: StatusVoided}, nil
}

// terminalState covers APPROVED, FAILED and VOIDED. None of them accepts a transition,
// not even to itself.
type terminalState struct{ status Status }

func (s terminalState) Status() Status { return s.status }

func (terminalState) OnApproved(*Order) (OrderState, error) {
	return nil, ErrInvalidTransition
}

func (terminalState) OnFailed(*Order, string) (OrderState, error) {
	return nil, ErrInvalidTransition
}

func (terminalState) OnVoided(*Order, string) (OrderState, error) {
	return nil, ErrInvalidTransition
}
