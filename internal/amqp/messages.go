package amqp

import (
	"encoding/json"
	"time"
)

// TransactionsImportedMessage announces a completed import batch.
// It carries only external keys; consumers fetch the rows from the store.
type TransactionsImportedMessage struct {
	ExternalKeys []string  `json:"external_keys"`
	Imported     int       `json:"imported"`
	Skipped      int       `json:"skipped"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewTransactionsImportedMessage(keys []string, imported, skipped int) *TransactionsImportedMessage {
	return &TransactionsImportedMessage{
		ExternalKeys: keys,
		Imported:     imported,
		Skipped:      skipped,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionsImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionsImportedMessageFromJSON(data []byte) (*TransactionsImportedMessage, error) {
	var msg TransactionsImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
