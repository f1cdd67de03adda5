package recorder

import "sync/atomic"

// State is the state of a recorder.
type State uint32

const (
	ClosedState State = iota
	OpeningState
	OpenedState
	ClosingState
	InvalidState
)

func (s State) String() string {
	switch s {
	case ClosedState:
		return "Closed"
	case OpeningState:
		return "Opening"
	case OpenedState:
		return "Opened"
	case ClosingState:
		return "Closing"
	case InvalidState:
		return "Invalid"
	default:
		return "Unknown"
	}
}

type atomicState struct {
	state atomic.Uint32
}

func (st *atomicState) Get() State {
	return State(st.state.Load())
}

func (st *atomicState) Set(state State) {
	st.state.Store(uint32(state))
}

func (st *atomicState) IsOpened() bool {
	return st.Get() == OpenedState
}

func (st *atomicState) ToOpening() bool {
	return st.state.CompareAndSwap(uint32(ClosedState), uint32(OpeningState))
}

func (st *atomicState) ToOpened() bool {
	return st.state.CompareAndSwap(uint32(OpeningState), uint32(OpenedState))
}

func (st *atomicState) ToClosing() bool {
	return st.state.CompareAndSwap(uint32(OpenedState), uint32(ClosingState))
}

// ToClosed leaves the Opening or Closing state. An invalid recorder stays invalid.
func (st *atomicState) ToClosed() bool {
	if st.state.CompareAndSwap(uint32(ClosingState), uint32(ClosedState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(ClosedState))
}
