package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ledger operations carried on LedgerChanged events.
const (
	OpAppend        = "append"
	OpEdit          = "edit"
	OpDelete        = "delete"
	OpRename        = "rename"
	OpRemoveProject = "remove_project"
	OpRestore       = "restore"
	OpSettings      = "settings"
)

// LedgerChanged announces that the ledger or settings were written. It
// carries no record data; consumers re-read the store.
type LedgerChanged struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Project   string    `json:"project,omitempty"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChanged(op, project string, rows int) *LedgerChanged {
	return &LedgerChanged{
		ID:        uuid.NewString(),
		Op:        op,
		Project:   project,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedFromJSON(data []byte) (*LedgerChanged, error) {
	var msg LedgerChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" {
		return nil, errors.New("missing op")
	}
	return &msg, nil
}
