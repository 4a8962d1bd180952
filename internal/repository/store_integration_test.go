//go:build integration
// +build integration

package repository_test

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DodailSolutions/billbook/internal"
	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/repository"
)

// openTestStore connects to DATABASE_URL from .env.test and applies the
// migrations. Rows are written under fresh tenant ids, so runs do not
// interfere with each other.
func openTestStore(t *testing.T) *repository.PoolStore {
	t.Helper()

	_ = godotenv.Load("../../.env.test")
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	require.NoError(t, internal.RunMigrations(db))

	return repository.NewStore(pool)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedTemplate(t *testing.T, store *repository.PoolStore, tenantID uuid.UUID, start time.Time, end *time.Time) domain.RecurringInvoice {
	t.Helper()
	ctx := context.Background()

	customer, err := store.CreateCustomer(ctx, domain.Customer{TenantID: tenantID, Name: "Acme Pvt Ltd"})
	require.NoError(t, err)

	next := domain.NextOccurrence(start, domain.FrequencyMonthly, 1)
	rec, err := store.CreateRecurringInvoice(ctx, domain.RecurringInvoice{
		TenantID:        tenantID,
		CustomerID:      customer.ID,
		Frequency:       domain.FrequencyMonthly,
		StartDate:       start,
		EndDate:         end,
		NextInvoiceDate: next,
		TaxPercentage:   decimal.NewFromInt(18),
		IsActive:        domain.WithinRun(next, end),
	})
	require.NoError(t, err)

	_, err = store.CreateRecurringInvoiceItem(ctx, domain.RecurringInvoiceItem{
		RecurringInvoiceID: rec.ID,
		Description:        "Hosting",
		Quantity:           decimal.NewFromInt(2),
		UnitPrice:          decimal.RequireFromString("1749.75"),
		Position:           1,
	})
	require.NoError(t, err)
	return rec
}

func TestStore_AllocateInvoiceNumber_Concurrent(t *testing.T) {
	store := openTestStore(t)
	tenantID := uuid.New()

	const n = 20
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := store.AllocateInvoiceNumber(context.Background(), tenantID)
			if assert.NoError(t, err) {
				numbers <- number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	var got []string
	for number := range numbers {
		got = append(got, number)
	}
	sort.Strings(got)
	require.Len(t, got, n)
	assert.Equal(t, "INV-00001", got[0])
	assert.Equal(t, "INV-00020", got[n-1])
	for i := 1; i < len(got); i++ {
		assert.NotEqual(t, got[i-1], got[i])
	}
}

func TestStore_MaterializeRecurringInvoice_Schedule(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()
	start := day(2024, time.January, 31)
	rec := seedTemplate(t, store, tenantID, start, nil)

	for cycle := 1; cycle <= 3; cycle++ {
		want := domain.NextOccurrence(start, domain.FrequencyMonthly, cycle)

		invoiceID, err := store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
		require.NoError(t, err)

		inv, err := store.GetInvoice(ctx, tenantID, invoiceID)
		require.NoError(t, err)
		assert.Equal(t, want.Format(time.DateOnly), inv.InvoiceDate.Format(time.DateOnly), "cycle %d", cycle)
		require.NotNil(t, inv.DueDate)
		assert.Equal(t, want.AddDate(0, 0, 15).Format(time.DateOnly), inv.DueDate.Format(time.DateOnly))
		assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
		assert.True(t, decimal.RequireFromString("4129.41").Equal(inv.Total), "total %s", inv.Total)

		items, err := store.ListInvoiceItems(ctx, invoiceID)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}

	got, err := store.GetRecurringInvoice(ctx, tenantID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), got.CyclesGenerated)
	assert.Equal(t, "2024-05-31", got.NextInvoiceDate.Format(time.DateOnly))
}

func TestStore_MaterializeRecurringInvoice_Concurrent(t *testing.T) {
	store := openTestStore(t)
	tenantID := uuid.New()
	rec := seedTemplate(t, store, tenantID, day(2024, time.January, 15), nil)

	const n = 5
	ids := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.MaterializeRecurringInvoice(context.Background(), tenantID, rec.ID)
			if assert.NoError(t, err) {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	dates := map[string]bool{}
	numbers := map[string]bool{}
	for id := range ids {
		inv, err := store.GetInvoice(context.Background(), tenantID, id)
		require.NoError(t, err)
		dates[inv.InvoiceDate.Format(time.DateOnly)] = true
		numbers[inv.InvoiceNumber] = true
	}
	assert.Len(t, dates, n)
	assert.Len(t, numbers, n)
}

func TestStore_MaterializeRecurringInvoice_SameCycleReturnsExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()
	rec := seedTemplate(t, store, tenantID, day(2024, time.March, 1), nil)

	first, err := store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
	require.NoError(t, err)

	// Point the schedule back at the cycle that was just generated.
	rec.NextInvoiceDate = day(2024, time.April, 1)
	rec.IsActive = true
	_, err = store.UpdateRecurringInvoice(ctx, rec)
	require.NoError(t, err)

	again, err := store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	invoices, err := store.ListInvoices(ctx, repository.ListInvoicesParams{TenantID: tenantID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestStore_MaterializeRecurringInvoice_EndDate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("last cycle deactivates", func(t *testing.T) {
		end := day(2024, time.February, 15)
		rec := seedTemplate(t, store, tenantID, day(2024, time.January, 1), &end)
		require.True(t, rec.IsActive)

		_, err := store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
		require.NoError(t, err)

		got, err := store.GetRecurringInvoice(ctx, tenantID, rec.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		_, err = store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
		assert.True(t, repository.IsRecurringInactive(err), "err %v", err)
	})

	t.Run("occurrence past end date is rejected", func(t *testing.T) {
		end := day(2024, time.January, 15)
		rec := seedTemplate(t, store, tenantID, day(2024, time.January, 1), &end)

		// Force the row active to reach the end date guard.
		rec, err := store.UpdateRecurringInvoiceActive(ctx, tenantID, rec.ID, true)
		require.NoError(t, err)

		_, err = store.MaterializeRecurringInvoice(ctx, tenantID, rec.ID)
		assert.True(t, repository.IsRecurringInactive(err), "err %v", err)
	})
}

func TestStore_MaterializeRecurringInvoice_TenantScoped(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := seedTemplate(t, store, uuid.New(), day(2024, time.January, 1), nil)

	_, err := store.MaterializeRecurringInvoice(ctx, uuid.New(), rec.ID)
	assert.True(t, repository.IsRecurringNotFound(err), "err %v", err)
}

func TestStore_ExecTx_RollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	err := store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.CreateCustomer(ctx, domain.Customer{TenantID: tenantID, Name: "Rolled back"}); err != nil {
			return err
		}
		_, err := q.CreateCustomer(ctx, domain.Customer{TenantID: tenantID, Name: ""})
		return err
	})
	require.Error(t, err)
	assert.True(t, repository.IsCheckViolation(err))

	customers, err := store.ListCustomers(ctx, tenantID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, customers)
}
