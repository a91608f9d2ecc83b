// Package state_machine tracks the scan state of a single backtest run.
package state_machine

import (
	"time"

	"github.com/amirphl/intraday-backtester/internal/strategy"
)

// State represents where the scan loop is for the current decision bar
type State string

const (
	Scanning          State = "Scanning"
	AwaitingRejection State = "AwaitingRejection"
	ValidatingEntry   State = "ValidatingEntry"
	InTrade           State = "InTrade"
)

// StateTransition is one recorded state change. Timestamp is the time of the
// candle that caused it, never the wall clock.
type StateTransition struct {
	FromState State          `json:"from_state"`
	ToState   State          `json:"to_state"`
	Condition string         `json:"condition"`
	Setup     strategy.Setup `json:"setup"`
	Reason    string         `json:"reason"`
	Timestamp time.Time      `json:"timestamp"`
}

// StateMachine records transitions for one symbol. It is owned by a single
// run and is not safe for concurrent use.
type StateMachine struct {
	currentState   State
	symbol         string
	lastTransition time.Time
	stateHistory   []StateTransition
	totals         map[State]int
	total          int
	maxHistorySize int
}

// NewStateMachine creates a state machine in the Scanning state
func NewStateMachine(symbol string) *StateMachine {
	return &StateMachine{
		currentState:   Scanning,
		symbol:         symbol,
		stateHistory:   make([]StateTransition, 0),
		totals:         make(map[State]int),
		maxHistorySize: 1000,
	}
}

// TransitionTo changes the state at candle time at.
func (sm *StateMachine) TransitionTo(newState State, at time.Time, condition string, setup strategy.Setup, reason string) {
	sm.stateHistory = append(sm.stateHistory, StateTransition{
		FromState: sm.currentState,
		ToState:   newState,
		Condition: condition,
		Setup:     setup,
		Reason:    reason,
		Timestamp: at,
	})
	if len(sm.stateHistory) > sm.maxHistorySize {
		sm.stateHistory = sm.stateHistory[1:]
	}
	sm.totals[newState]++
	sm.total++
	sm.currentState = newState
	sm.lastTransition = at
}

// GetStateHistory returns the retained transitions, oldest first
func (sm *StateMachine) GetStateHistory() []StateTransition {
	return sm.stateHistory
}

// GetStateMetrics returns counters about the run
func (sm *StateMachine) GetStateMetrics() map[string]any {
	counts := make(map[State]int, len(sm.totals))
	for k, v := range sm.totals {
		counts[k] = v
	}
	return map[string]any{
		"symbol":            sm.symbol,
		"current_state":     sm.currentState,
		"total_transitions": sm.total,
		"history_size":      len(sm.stateHistory),
		"last_transition":   sm.lastTransition,
		"state_counts":      counts,
	}
}
