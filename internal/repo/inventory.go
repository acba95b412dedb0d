package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product is one stock line of a user's inventory. Price is the selling
// price, Cost the last purchase price.
type Product struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Transaction types.
const (
	TxAdd  = "add"
	TxSell = "sell"
)

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	ProductName string    `json:"productName"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Total       float64   `json:"total"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Profile holds running totals for a user.
type Profile struct {
	UserID        string    `json:"userId"`
	TotalSales    float64   `json:"totalSales"`
	TotalExpenses float64   `json:"totalExpenses"`
	TotalProfit   float64   `json:"totalProfit"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const productColumns = `id, user_id, name, quantity, price, cost, created_at, updated_at`

// FindProductByName matches the name case-insensitively within one user's inventory.
func (r *Repository) FindProductByName(ctx context.Context, userID, name string) (*Product, error) {
	row := r.queryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE user_id = ? AND lower(name) = lower(?)`,
		userID, name)
	return scanProduct(row)
}

// InsertProduct creates a product. A name already used by the user yields ErrDuplicate.
func (r *Repository) InsertProduct(ctx context.Context, p Product) (*Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := r.timestamp()
	_, err := r.exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Quantity, p.Price, p.Cost, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt = fromNanos(ts)
	p.UpdatedAt = p.CreatedAt
	return &p, nil
}

// IncreaseStock adds qty to a product and records cost as its latest purchase price.
func (r *Repository) IncreaseStock(ctx context.Context, productID string, qty, cost float64) error {
	res, err := r.exec(ctx,
		`UPDATE products SET quantity = quantity + ?, cost = ?, updated_at = ? WHERE id = ?`,
		qty, cost, r.timestamp(), productID,
	)
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increase stock: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecreaseStock removes qty only if at least qty is on hand. It reports
// whether the decrement happened; false means the stock was too low.
func (r *Repository) DecreaseStock(ctx context.Context, productID string, qty float64) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE products SET quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ?`,
		qty, r.timestamp(), productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("decrease stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrease stock: %w", err)
	}
	return n > 0, nil
}

// GetProduct reloads a product by id.
func (r *Repository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	return scanProduct(r.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, productID))
}

// ListProducts returns a user's products ordered by name.
func (r *Repository) ListProducts(ctx context.Context, userID string) ([]Product, error) {
	rows, err := r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE user_id = ? ORDER BY lower(name)`, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// InsertTransaction appends a ledger entry and returns it with id and timestamp set.
func (r *Repository) InsertTransaction(ctx context.Context, t Transaction) (*Transaction, error) {
	t.ID = uuid.NewString()
	ts := r.timestamp()
	_, err := r.exec(ctx,
		`INSERT INTO transactions (id, user_id, type, product_name, quantity, price, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Type, t.ProductName, t.Quantity, t.Price, t.Total, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	t.CreatedAt = fromNanos(ts)
	return &t, nil
}

// ListTransactions returns a user's ledger entries, newest first. limit <= 0 means all.
func (r *Repository) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	q := `SELECT id, user_id, type, product_name, quantity, price, total, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var (
			t  Transaction
			ts int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.ProductName, &t.Quantity, &t.Price, &t.Total, &ts); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CreatedAt = fromNanos(ts)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// AddTotals adds to a user's running sales and expenses; profit follows as their difference.
func (r *Repository) AddTotals(ctx context.Context, userID string, sales, expenses float64) error {
	_, err := r.exec(ctx,
		`INSERT INTO profiles (user_id, total_sales, total_expenses, total_profit, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			total_sales = profiles.total_sales + excluded.total_sales,
			total_expenses = profiles.total_expenses + excluded.total_expenses,
			total_profit = profiles.total_profit + excluded.total_profit,
			updated_at = excluded.updated_at`,
		userID, sales, expenses, sales-expenses, r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("add totals: %w", err)
	}
	return nil
}

// GetProfile returns a user's totals, or a zero profile when nothing was recorded yet.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p  Profile
		ts int64
	)
	err := r.queryRow(ctx,
		`SELECT user_id, total_sales, total_expenses, total_profit, updated_at FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.TotalSales, &p.TotalExpenses, &p.TotalProfit, &ts)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return &Profile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.UpdatedAt = fromNanos(ts)
	return &p, nil
}

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var (
		p                Product
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Quantity, &p.Price, &p.Cost, &created, &updated); err != nil {
		return nil, notFound(err)
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}
