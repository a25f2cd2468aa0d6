package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ApprovalDecision is produced by an external approver and fed back into
// the execution context under ApprovalKey to resume a paused run. A
// recorded decision makes resumption idempotent: re-running the approval
// step advances past it rather than re-suspending
type ApprovalDecision struct {
	Approved    bool         `json:"approved"`
	Comments    string       `json:"comments,omitempty"`
	Replacement map[Name]any `json:"replacement,omitempty"`
	Approver    string       `json:"approver,omitempty"`
	DecidedAt   time.Time    `json:"decided_at,omitzero"`
}

const approvalKeyPrefix = "approval."

var ErrDecodeApproval = errors.New("failed to decode approval decision")

// ApprovalKey is the well-known context key under which the approval
// decision for the named step is recorded
func ApprovalKey(stepName string) Name {
	return Name(approvalKeyPrefix + stepName)
}

// DecodeApproval converts a context value into an ApprovalDecision. After a
// snapshot round-trip the recorded decision arrives as a generic JSON map,
// so decoding goes through a marshal/unmarshal pass
func DecodeApproval(value any) (*ApprovalDecision, error) {
	if decision, ok := value.(*ApprovalDecision); ok {
		return decision, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeApproval, err)
	}

	res := &ApprovalDecision{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeApproval, err)
	}
	return res, nil
}
