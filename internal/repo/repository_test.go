package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	r, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Migrate(ctx))

	// Monotonic clock so ordering by created_at is deterministic.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	r.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return r
}

func seedUser(t *testing.T, r *Repository, email string) *User {
	t.Helper()
	u, err := r.CreateUser(context.Background(), "Asha", email, "hash")
	require.NoError(t, err)
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	u := seedUser(t, r, "asha@example.com")

	got, err := r.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got.Email)

	_, err = r.CreateUser(ctx, "Other", "asha@example.com", "x")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = r.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	u := seedUser(t, r, "a@example.com")

	p, err := r.InsertProduct(ctx, Product{UserID: u.ID, Name: "Rice", Quantity: 5, Price: 60, Cost: 50})
	require.NoError(t, err)

	found, err := r.FindProductByName(ctx, u.ID, "rICE")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = r.InsertProduct(ctx, Product{UserID: u.ID, Name: "rice", Quantity: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, r.IncreaseStock(ctx, p.ID, 2.5, 55))
	ok, err := r.DecreaseStock(ctx, p.ID, 7.5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DecreaseStock(ctx, p.ID, 0.1)
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, after.Quantity)
	assert.Equal(t, 55.0, after.Cost)
	assert.Equal(t, 60.0, after.Price)

	_, err = r.FindProductByName(ctx, u.ID, "sugar")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.IncreaseStock(ctx, "missing", 1, 1), ErrNotFound)

	_, err = r.InsertProduct(ctx, Product{UserID: u.ID, Name: "atta", Quantity: 1})
	require.NoError(t, err)
	list, err := r.ListProducts(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "atta", list[0].Name)
	assert.Equal(t, "Rice", list[1].Name)
}

func TestProductsAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a := seedUser(t, r, "a@example.com")
	b := seedUser(t, r, "b@example.com")

	_, err := r.InsertProduct(ctx, Product{UserID: a.ID, Name: "tea", Quantity: 1})
	require.NoError(t, err)
	_, err = r.InsertProduct(ctx, Product{UserID: b.ID, Name: "tea", Quantity: 1})
	require.NoError(t, err)

	_, err = r.FindProductByName(ctx, b.ID, "tea")
	require.NoError(t, err)
	list, err := r.ListProducts(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransactionsAndProfile(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	u := seedUser(t, r, "a@example.com")

	empty, err := r.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, &Profile{UserID: u.ID}, empty)

	_, err = r.InsertTransaction(ctx, Transaction{UserID: u.ID, Type: TxAdd, ProductName: "rice", Quantity: 5, Price: 50, Total: 250})
	require.NoError(t, err)
	_, err = r.InsertTransaction(ctx, Transaction{UserID: u.ID, Type: TxSell, ProductName: "rice", Quantity: 2, Price: 60, Total: 120})
	require.NoError(t, err)

	txs, err := r.ListTransactions(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, TxSell, txs[0].Type)
	assert.Equal(t, TxAdd, txs[1].Type)

	txs, err = r.ListTransactions(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	require.NoError(t, r.AddTotals(ctx, u.ID, 0, 250))
	require.NoError(t, r.AddTotals(ctx, u.ID, 120, 0))
	prof, err := r.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, prof.TotalSales)
	assert.Equal(t, 250.0, prof.TotalExpenses)
	assert.Equal(t, -130.0, prof.TotalProfit)
}

func TestWithTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	u := seedUser(t, r, "a@example.com")

	err := r.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.InsertProduct(ctx, Product{UserID: u.ID, Name: "oil", Quantity: 1}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = r.FindProductByName(ctx, u.ID, "oil")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, DialectSQLite)
	assert.Equal(t, "SELECT a FROM t WHERE x = ?", lite.rebind("SELECT a FROM t WHERE x = ?"))
}

func TestDecreaseStock_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := New(db, DialectPostgres)
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE products SET quantity = quantity - $1, updated_at = $2 WHERE id = $3 AND quantity >= $4`)).
		WithArgs(3.0, sqlmock.AnyArg(), "p-1", 3.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.DecreaseStock(context.Background(), "p-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_PostgresMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := New(db, DialectPostgres)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM profiles WHERE user_id = $1`)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_sales", "total_expenses", "total_profit", "updated_at"}))

	prof, err := r.GetProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", prof.UserID)
	assert.Zero(t, prof.TotalSales)
	assert.NoError(t, mock.ExpectationsWereMet())
}
