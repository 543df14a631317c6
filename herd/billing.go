package herd

import "time"

// =============================================================================
// TRANSACTION - Purchase or sale with installment billing
// =============================================================================

type TransactionType string

const (
	Purchase TransactionType = "purchase"
	Sale     TransactionType = "sale"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionFinalized TransactionStatus = "finalized"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction is a purchase or sale negotiation. Its installments are
// generated once, at creation time, and their sum equals Total exactly for
// the lifetime of the transaction.
type Transaction struct {
	ID               string
	Type             TransactionType
	PartnerID        string
	NegotiatedOn     Date
	InstallmentCount int
	Total            Money
	Status           TransactionStatus
	Notes            string
	CreatedAt        time.Time
}

// LineItem is one price group of a transaction: N animals at a unit price.
type LineItem struct {
	ID            string
	TransactionID string
	UnitPrice     Money
	AnimalCount   int
	Description   string
}

// AnimalLink ties an animal to the transaction (and optionally to the line
// item it was priced under).
type AnimalLink struct {
	ID            string
	TransactionID string
	AnimalID      string
	LineItemID    string
}

// =============================================================================
// INSTALLMENT - One scheduled partial payment
// =============================================================================

type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentCancelled InstallmentStatus = "cancelled"
	// InstallmentOverdue is a read-time projection of a pending installment
	// past its due date. It is never persisted.
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled partial payment of a transaction. Number is
// 1-based and contiguous within the owning transaction.
type Installment struct {
	ID            string
	TransactionID string
	Number        int
	DueOn         Date
	Amount        Money
	Status        InstallmentStatus
	PaidOn        Date
	Notes         string
}
