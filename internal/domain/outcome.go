package domain

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the closed classification of a finished dial attempt.
type Outcome string

const (
	OutcomeConnected     Outcome = "CONNECTED"
	OutcomeNoAnswer      Outcome = "NO_ANSWER"
	OutcomeBusy          Outcome = "BUSY"
	OutcomeVoicemail     Outcome = "VOICEMAIL"
	OutcomeInvalidNumber Outcome = "INVALID_NUMBER"
	OutcomeAgentHangup   Outcome = "AGENT_HANGUP"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeConnected, OutcomeNoAnswer, OutcomeBusy, OutcomeVoicemail,
		OutcomeInvalidNumber, OutcomeAgentHangup:
		return true
	}
	return false
}

// Connected reports whether a live party was reached. Agent hangup counts:
// the call connected before the agent ended it.
func (o Outcome) Connected() bool {
	return o == OutcomeConnected || o == OutcomeAgentHangup
}

// Exhausting reports whether the outcome ends dialing regardless of the
// remaining attempt budget. An invalid number can never connect.
func (o Outcome) Exhausting() bool {
	return o == OutcomeInvalidNumber
}

// IntermediateStatus maps a non-connecting outcome to the transient status
// the retry scheduler re-evaluates.
func (o Outcome) IntermediateStatus() Status {
	switch o {
	case OutcomeBusy:
		return StatusBusy
	case OutcomeVoicemail:
		return StatusVoicemail
	default:
		return StatusNoAnswer
	}
}

func ParseOutcomeFromString(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid outcome %q", ErrValidation, s)
	}
	return o, nil
}

// DialAttemptResult is the transient telephony report consumed by the
// outcome processor. Full call history persistence is out of scope.
type DialAttemptResult struct {
	ContactID string
	OwnerID   string
	Outcome   Outcome
	Duration  time.Duration
	Timestamp time.Time
}

func (r *DialAttemptResult) Validate() error {
	if strings.TrimSpace(r.ContactID) == "" {
		return fmt.Errorf("%w: contact id is required", ErrValidation)
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if !r.Outcome.IsValid() {
		return fmt.Errorf("%w: invalid outcome %q", ErrValidation, r.Outcome)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}
	return nil
}
