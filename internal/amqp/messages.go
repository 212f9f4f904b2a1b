package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage tells the worker a transaction needs mirroring
// to the ledger sheet. It carries only identifiers, the worker fetches
// the full row from the database.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, ownerID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
