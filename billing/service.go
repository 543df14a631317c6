package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/herd-engine/herd"
)

// =============================================================================
// TRANSACTION SERVICE - Atomic creation and settlement
// =============================================================================

// ItemDraft is one price group of a new transaction: the listed animals at
// a shared unit price.
type ItemDraft struct {
	UnitPrice   herd.Money
	AnimalIDs   []string
	Description string
}

// TransactionDraft is the input to CreateTransaction.
type TransactionDraft struct {
	Type             herd.TransactionType
	PartnerID        string
	NegotiatedOn     herd.Date
	InstallmentCount int
	Items            []ItemDraft
	Notes            string
}

// TransactionDetail is the assembled read model of one transaction.
type TransactionDetail struct {
	Transaction  herd.Transaction
	Items        []herd.LineItem
	AnimalIDs    []string
	Installments []herd.Installment
}

// TransactionService creates transactions as a single atomic unit
// (transaction, line items, animal links, installments, animal status side
// effects) and drives installment settlement.
type TransactionService struct {
	store herd.Store
	newID func() string
	clock func() time.Time
}

func NewTransactionService(store herd.Store) *TransactionService {
	return &TransactionService{
		store: store,
		newID: uuid.NewString,
		clock: time.Now,
	}
}

// CreateTransaction validates the draft, totals the line items, generates
// the installment plan and persists everything in one transaction. On any
// step's failure the whole unit is aborted; a transaction with some but not
// all of its records is never left visible.
//
// Side effects within the same unit: a sale marks every linked animal as
// sold with the negotiation date; a purchase marks it as acquired by
// purchase.
func (s *TransactionService) CreateTransaction(ctx context.Context, d TransactionDraft) (*TransactionDetail, error) {
	if d.Type != herd.Purchase && d.Type != herd.Sale {
		return nil, &herd.ValidationError{Field: "type", Reason: "must be purchase or sale"}
	}
	if len(d.Items) == 0 {
		return nil, &herd.ValidationError{Field: "items", Reason: "at least one price group required"}
	}

	total := herd.Money{}
	for i, item := range d.Items {
		if !item.UnitPrice.IsPositive() {
			return nil, &herd.ValidationError{Field: fmt.Sprintf("items[%d].unit_price", i), Reason: "must be positive"}
		}
		if len(item.AnimalIDs) == 0 {
			return nil, &herd.ValidationError{Field: fmt.Sprintf("items[%d].animal_ids", i), Reason: "at least one animal required"}
		}
		total = total.Add(item.UnitPrice.MulInt(len(item.AnimalIDs)))
	}

	installments, err := GenerateInstallments(total, d.InstallmentCount, d.NegotiatedOn)
	if err != nil {
		return nil, err
	}

	tx := herd.Transaction{
		ID:               s.newID(),
		Type:             d.Type,
		PartnerID:        d.PartnerID,
		NegotiatedOn:     d.NegotiatedOn,
		InstallmentCount: d.InstallmentCount,
		Total:            total,
		Status:           herd.TransactionPending,
		Notes:            d.Notes,
		CreatedAt:        s.clock(),
	}

	detail := &TransactionDetail{Transaction: tx}

	err = s.store.WithTx(ctx, func(st herd.Store) error {
		if err := st.InsertTransaction(ctx, tx); err != nil {
			return err
		}

		for _, draft := range d.Items {
			item := herd.LineItem{
				ID:            s.newID(),
				TransactionID: tx.ID,
				UnitPrice:     draft.UnitPrice,
				AnimalCount:   len(draft.AnimalIDs),
				Description:   draft.Description,
			}
			if err := st.InsertLineItem(ctx, item); err != nil {
				return err
			}
			detail.Items = append(detail.Items, item)

			for _, animalID := range draft.AnimalIDs {
				link := herd.AnimalLink{
					ID:            s.newID(),
					TransactionID: tx.ID,
					AnimalID:      animalID,
					LineItemID:    item.ID,
				}
				if err := st.LinkAnimal(ctx, link); err != nil {
					return err
				}
				detail.AnimalIDs = append(detail.AnimalIDs, animalID)

				switch tx.Type {
				case herd.Sale:
					if err := st.MarkAnimalSold(ctx, animalID, tx.ID, tx.NegotiatedOn); err != nil {
						return err
					}
				case herd.Purchase:
					if err := st.MarkAnimalPurchased(ctx, animalID, tx.ID, tx.NegotiatedOn); err != nil {
						return err
					}
				}
			}
		}

		for i := range installments {
			installments[i].ID = s.newID()
			installments[i].TransactionID = tx.ID
		}
		if err := st.InsertInstallments(ctx, installments); err != nil {
			return err
		}
		detail.Installments = installments
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return detail, nil
}

// RecordPayment settles a pending installment. When the last installment of
// a transaction is paid, the transaction transitions to finalized in the
// same atomic unit.
func (s *TransactionService) RecordPayment(ctx context.Context, installmentID string, paidOn herd.Date) (*herd.Installment, error) {
	if paidOn.IsZero() {
		return nil, &herd.ValidationError{Field: "paid_on", Reason: "payment date required"}
	}

	var paid *herd.Installment
	err := s.store.WithTx(ctx, func(st herd.Store) error {
		in, err := st.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if in.Status != herd.InstallmentPending {
			return fmt.Errorf("installment %d is %s: %w", in.Number, in.Status, herd.ErrConflict)
		}

		in.Status = herd.InstallmentPaid
		in.PaidOn = paidOn
		if err := st.UpdateInstallment(ctx, *in); err != nil {
			return err
		}
		paid = in

		siblings, err := st.ListInstallments(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.Status != herd.InstallmentPaid {
				return nil
			}
		}
		return st.UpdateTransactionStatus(ctx, in.TransactionID, herd.TransactionFinalized)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return paid, nil
}

// CancelInstallment cancels a pending installment. Paid installments cannot
// be cancelled.
func (s *TransactionService) CancelInstallment(ctx context.Context, installmentID string) (*herd.Installment, error) {
	var cancelled *herd.Installment
	err := s.store.WithTx(ctx, func(st herd.Store) error {
		in, err := st.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if in.Status != herd.InstallmentPending {
			return fmt.Errorf("installment %d is %s: %w", in.Number, in.Status, herd.ErrConflict)
		}
		in.Status = herd.InstallmentCancelled
		if err := st.UpdateInstallment(ctx, *in); err != nil {
			return err
		}
		cancelled = in
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel installment: %w", err)
	}
	return cancelled, nil
}

// Detail assembles the full read model of one transaction. Installment
// statuses are projected against today.
func (s *TransactionService) Detail(ctx context.Context, transactionID string, today herd.Date) (*TransactionDetail, error) {
	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	animalIDs, err := s.store.ListTransactionAnimals(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	installments, err := s.store.ListInstallments(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	for i := range installments {
		installments[i].Status = EffectiveStatus(installments[i], today)
	}
	return &TransactionDetail{
		Transaction:  *tx,
		Items:        items,
		AnimalIDs:    animalIDs,
		Installments: installments,
	}, nil
}

// ListDue returns pending installments due on or before until, with the
// overdue projection applied against today.
func (s *TransactionService) ListDue(ctx context.Context, until, today herd.Date) ([]herd.Installment, error) {
	due, err := s.store.ListInstallmentsDue(ctx, until)
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = EffectiveStatus(due[i], today)
	}
	return due, nil
}
