package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Event is one structured audit record. Every balance-affecting operation
// and every funding decision emits exactly one event.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	ReferenceID string    `json:"reference_id"`
	UserID      string    `json:"user_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Details     any       `json:"details"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

// LogEntry records a committed ledger write.
func (a *Logger) LogEntry(userID, referenceID, reason string, delta, resultingBalance int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "LEDGER_ENTRY",
		ReferenceID: referenceID,
		UserID:      userID,
		Amount:      delta,
		Status:      "SUCCESS",
		Details: map[string]any{
			"reason":            reason,
			"resulting_balance": resultingBalance,
		},
	})
}

// LogDecision records an administrator approving or rejecting a funding request.
func (a *Logger) LogDecision(userID, requestID, kind, decision, adminID, reason string, amount int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "FUNDING_DECISION",
		ReferenceID: requestID,
		UserID:      userID,
		Amount:      amount,
		Status:      decision,
		Details: map[string]string{
			"kind":       kind,
			"decided_by": adminID,
			"reason":     reason,
		},
	})
}

// LogPlayerAction records a direct administrator balance or lock action.
func (a *Logger) LogPlayerAction(userID, adminID, action, reason string, amount int64) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "PLAYER_ACTION",
		UserID:    userID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]string{
			"action":     action,
			"applied_by": adminID,
			"reason":     reason,
		},
	})
}

// LogError records a failed operation against the ledger.
func (a *Logger) LogError(userID, referenceID string, err error) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "ERROR",
		ReferenceID: referenceID,
		UserID:      userID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
