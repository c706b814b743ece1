package fsm

// transitionKey is the (state, event) pair the table is keyed on.
type transitionKey struct {
	state State
	event Event
}

// transitionRow is everything Dispatch returns for a valid pair.
type transitionRow struct {
	next    State
	actions []Action
}

// userInputEvents are the ways a user message re-enters the pipeline, from
// either a fresh session or one that was waiting on the user.
var userInputEvents = []Event{UserSentText, UserSentMedia, UserSelectedButton, UserSelectedList}

// universalFailureEvents fire from any non-terminal state straight to Failed.
var universalFailureEvents = []Event{SessionTimeout, InternalError}

var table = buildTable()

func buildTable() map[transitionKey]transitionRow {
	t := make(map[transitionKey]transitionRow)

	addMany := func(state State, events []Event, next State, actions ...Action) {
		for _, e := range events {
			t[transitionKey{state, e}] = transitionRow{next: next, actions: actions}
		}
	}

	addMany(Init, userInputEvents, Identifying, ActionDetectEvent)
	addMany(AwaitingUser, userInputEvents, Identifying, ActionDetectEvent)

	t[transitionKey{Identifying, EventDetected}] = transitionRow{UnderstandingIntent, []Action{ActionClassifyIntent}}
	t[transitionKey{UnderstandingIntent, EventDetected}] = transitionRow{Processing, []Action{ActionPrepareResponse}}
	t[transitionKey{Processing, EventDetected}] = transitionRow{GeneratingResponse, []Action{ActionPrepareResponse}}
	t[transitionKey{GeneratingResponse, ResponseGenerated}] = transitionRow{SelectingMessageType, []Action{ActionPrepareResponse}}

	t[transitionKey{SelectingMessageType, MessageTypeSelected}] = transitionRow{
		AwaitingUser, []Action{ActionSendMessage, ActionPersistSession},
	}
	t[transitionKey{SelectingMessageType, HumanHandoffReady}] = transitionRow{
		Escalating, []Action{ActionSendMessage, ActionPersistSession, ActionEmitOutcome},
	}
	t[transitionKey{SelectingMessageType, SelfServeComplete}] = transitionRow{
		Completed, []Action{ActionSendMessage, ActionPersistSession, ActionEmitOutcome},
	}
	t[transitionKey{SelectingMessageType, ExternalRouteReady}] = transitionRow{
		Completed, []Action{ActionSendMessage, ActionPersistSession, ActionEmitOutcome},
	}

	for _, s := range []State{Init, Identifying, UnderstandingIntent, Processing, GeneratingResponse, SelectingMessageType, AwaitingUser} {
		addMany(s, universalFailureEvents, Failed, ActionEmitOutcome)
	}

	return t
}

// DispatchResult is the outcome of Dispatch: what state to move to (if any),
// whether the transition was valid, and what downstream work it implies.
type DispatchResult struct {
	NextState State
	Valid     bool
	Err       error
	Actions   []Action
}

// Dispatch is a pure function over the total transition table: given the
// current state and an incoming event, it returns the next state and the
// actions it implies, or Valid=false if no such transition exists (e.g. any
// event fired against a terminal state).
func Dispatch(current State, event Event) DispatchResult {
	if IsTerminal(current) {
		return DispatchResult{NextState: current, Valid: false, Err: &ErrNoTransition{State: current, Event: event}}
	}

	row, ok := table[transitionKey{current, event}]
	if !ok {
		return DispatchResult{NextState: current, Valid: false, Err: &ErrNoTransition{State: current, Event: event}}
	}

	return DispatchResult{NextState: row.next, Valid: true, Actions: row.actions}
}

// ErrNoTransition reports that no transition exists for (State, Event).
type ErrNoTransition struct {
	State State
	Event Event
}

func (e *ErrNoTransition) Error() string {
	return "fsm: no transition from " + string(e.State) + " on " + string(e.Event)
}
