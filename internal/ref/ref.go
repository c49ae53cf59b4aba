package ref

import "github.com/google/uuid"

// NewExternal returns a fresh external reference for a ledger transaction.
// External references let downstream reconciliation identify a transaction
// independently of its row id.
func NewExternal() string {
	return uuid.NewString()
}
