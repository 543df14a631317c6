package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/herd-engine/billing"
	"github.com/warp/herd-engine/herd"
	"github.com/warp/herd-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestTransactionService(t *testing.T) (*billing.TransactionService, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := billing.NewTransactionService(store)

	ctx := context.Background()
	for _, id := range []string{"cow-1", "cow-2", "cow-3"} {
		require.NoError(t, store.SaveAnimal(ctx, herd.Animal{
			ID: id, TagNumber: id, Sex: herd.Female,
			Origin: herd.OriginBorn, Status: herd.AnimalActive,
		}))
	}
	return svc, store
}

func saleDraft() billing.TransactionDraft {
	return billing.TransactionDraft{
		Type:             herd.Sale,
		NegotiatedOn:     herd.MustDate("2024-01-01"),
		InstallmentCount: 3,
		Items: []billing.ItemDraft{
			{UnitPrice: herd.MustMoney("500"), AnimalIDs: []string{"cow-1", "cow-2"}},
		},
	}
}

// =============================================================================
// ATOMIC CREATION UNIT
// =============================================================================

func TestCreateTransaction_Sale_FullUnit(t *testing.T) {
	// GIVEN: a sale of two animals at 500 each, in 3 installments
	// THEN: transaction, items, links, installments and animal status are
	//       all visible, consistently

	svc, store := newTestTransactionService(t)
	ctx := context.Background()

	detail, err := svc.CreateTransaction(ctx, saleDraft())
	require.NoError(t, err)

	assert.Equal(t, "1000.00", detail.Transaction.Total.String())
	assert.Equal(t, herd.TransactionPending, detail.Transaction.Status)
	require.Len(t, detail.Installments, 3)
	assert.Equal(t, "2024-01-31", detail.Installments[0].DueOn.String())

	sum := herd.Money{}
	for _, in := range detail.Installments {
		sum = sum.Add(in.Amount)
	}
	assert.True(t, sum.Equal(detail.Transaction.Total))

	// Sale side effect: animals marked sold on the negotiation date.
	for _, id := range []string{"cow-1", "cow-2"} {
		a, err := store.GetAnimal(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, herd.AnimalSold, a.Status)
		assert.Equal(t, "2024-01-01", a.StatusDate.String())
		assert.Equal(t, detail.Transaction.ID, a.SaleID)
	}

	// Untouched animal stays active.
	a, err := store.GetAnimal(ctx, "cow-3")
	require.NoError(t, err)
	assert.Equal(t, herd.AnimalActive, a.Status)
}

func TestCreateTransaction_Purchase_MarksOrigin(t *testing.T) {
	svc, store := newTestTransactionService(t)
	ctx := context.Background()

	draft := saleDraft()
	draft.Type = herd.Purchase
	draft.Items[0].AnimalIDs = []string{"cow-3"}
	draft.InstallmentCount = 1

	detail, err := svc.CreateTransaction(ctx, draft)
	require.NoError(t, err)

	a, err := store.GetAnimal(ctx, "cow-3")
	require.NoError(t, err)
	assert.Equal(t, herd.OriginPurchased, a.Origin)
	assert.Equal(t, herd.AnimalActive, a.Status)
	assert.Equal(t, detail.Transaction.ID, a.PurchaseID)
}

func TestCreateTransaction_InvalidDraft_Rejected(t *testing.T) {
	svc, _ := newTestTransactionService(t)
	ctx := context.Background()

	d := saleDraft()
	d.InstallmentCount = 0
	_, err := svc.CreateTransaction(ctx, d)
	assert.ErrorIs(t, err, herd.ErrInvalidArgument)

	d = saleDraft()
	d.Items = nil
	_, err = svc.CreateTransaction(ctx, d)
	assert.ErrorIs(t, err, herd.ErrInvalidArgument)

	d = saleDraft()
	d.Items[0].UnitPrice = herd.MustMoney("0")
	_, err = svc.CreateTransaction(ctx, d)
	assert.ErrorIs(t, err, herd.ErrInvalidArgument)
}

// failingInstallments makes the last step of the creation unit fail, to
// prove the unit rolls back as a whole.
type failingInstallments struct {
	herd.Store
}

var errDiskFull = errors.New("disk full")

func (f *failingInstallments) InsertInstallments(context.Context, []herd.Installment) error {
	return errDiskFull
}

func (f *failingInstallments) WithTx(ctx context.Context, fn func(herd.Store) error) error {
	return f.Store.WithTx(ctx, func(st herd.Store) error {
		return fn(&failingInstallments{Store: st})
	})
}

func TestCreateTransaction_PartialFailure_LeavesNothingBehind(t *testing.T) {
	// GIVEN: installment persistence fails after the transaction, items,
	//        links and animal updates already ran
	// THEN: the whole unit is rolled back; no partially-created
	//       transaction is visible and the animals keep their status

	_, store := newTestTransactionService(t)
	svc := billing.NewTransactionService(&failingInstallments{Store: store})
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, saleDraft())
	require.ErrorIs(t, err, errDiskFull)

	txs, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, txs, "no transaction may survive the failed unit")

	a, err := store.GetAnimal(ctx, "cow-1")
	require.NoError(t, err)
	assert.Equal(t, herd.AnimalActive, a.Status, "animal status side effect must roll back too")
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestRecordPayment_FinalizesWhenAllPaid(t *testing.T) {
	svc, store := newTestTransactionService(t)
	ctx := context.Background()

	detail, err := svc.CreateTransaction(ctx, saleDraft())
	require.NoError(t, err)

	for i, in := range detail.Installments {
		paid, err := svc.RecordPayment(ctx, in.ID, in.DueOn)
		require.NoError(t, err)
		assert.Equal(t, herd.InstallmentPaid, paid.Status)
		assert.Equal(t, in.DueOn, paid.PaidOn)

		tx, err := store.GetTransaction(ctx, detail.Transaction.ID)
		require.NoError(t, err)
		if i < len(detail.Installments)-1 {
			assert.Equal(t, herd.TransactionPending, tx.Status)
		} else {
			assert.Equal(t, herd.TransactionFinalized, tx.Status, "last payment finalizes the transaction")
		}
	}
}

func TestRecordPayment_NonPending_Conflicts(t *testing.T) {
	svc, _ := newTestTransactionService(t)
	ctx := context.Background()

	detail, err := svc.CreateTransaction(ctx, saleDraft())
	require.NoError(t, err)

	first := detail.Installments[0]
	_, err = svc.RecordPayment(ctx, first.ID, herd.MustDate("2024-01-20"))
	require.NoError(t, err)

	// Paying twice is a conflict, not a silent no-op.
	_, err = svc.RecordPayment(ctx, first.ID, herd.MustDate("2024-01-21"))
	assert.ErrorIs(t, err, herd.ErrConflict)

	// Cancelled installments cannot be paid either.
	second := detail.Installments[1]
	_, err = svc.CancelInstallment(ctx, second.ID)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, second.ID, herd.MustDate("2024-03-01"))
	assert.ErrorIs(t, err, herd.ErrConflict)
}

func TestListDue_ProjectsOverdue(t *testing.T) {
	svc, _ := newTestTransactionService(t)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, saleDraft())
	require.NoError(t, err)

	// Due dates are 01-31, 03-01, 03-31. Looking from 2024-03-05:
	today := herd.MustDate("2024-03-05")
	due, err := svc.ListDue(ctx, herd.MustDate("2024-12-31"), today)
	require.NoError(t, err)
	require.Len(t, due, 3)

	assert.Equal(t, herd.InstallmentOverdue, due[0].Status)
	assert.Equal(t, herd.InstallmentOverdue, due[1].Status)
	assert.Equal(t, herd.InstallmentPending, due[2].Status)
}
