package domain

import "time"

// Ledger entry types.
const (
	EntryDebit  = "debit"
	EntryCredit = "credit"
)

// LedgerEntry is an immutable record of an actual balance change. Entries
// are only ever appended, in the same atomic unit as the wallet mutation
// they document. Sequence is assigned by the store and orders the log.
type LedgerEntry struct {
	Sequence     int64
	ID           string
	WalletID     string
	ReferenceID  string
	Type         string
	Amount       int64
	BalanceAfter int64
	Description  string
	CreatedAt    time.Time
}

// Signed returns the entry amount with its direction applied: credits
// positive, debits negative. Summing signed amounts over a wallet's log
// reproduces its balance delta since inception.
func (e LedgerEntry) Signed() int64 {
	if e.Type == EntryDebit {
		return -e.Amount
	}
	return e.Amount
}
