package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"bot-inventory/internal/metrics"
	"bot-inventory/internal/nlu"
	"bot-inventory/internal/repo"
)

// DefaultMarkup sets the selling price of a new product relative to its cost.
const DefaultMarkup = 1.2

// Mutation is a validated-on-apply request to change stock.
type Mutation struct {
	Action   nlu.Action
	Product  string
	Quantity float64
	Price    *float64
}

// Result is the state after a mutation was applied.
type Result struct {
	Product     *repo.Product     `json:"product"`
	Transaction *repo.Transaction `json:"transaction"`
	Profile     *repo.Profile     `json:"profile"`
}

// Service applies inventory mutations and keeps the running totals.
type Service struct {
	repo    *repo.Repository
	markup  float64
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a ledger service. markup <= 0 selects DefaultMarkup.
func NewService(repository *repo.Repository, markup float64, m *metrics.Metrics, logger *slog.Logger) *Service {
	if markup <= 0 {
		markup = DefaultMarkup
	}
	return &Service{
		repo:    repository,
		markup:  markup,
		metrics: m,
		logger:  logger.With("component", "ledger"),
	}
}

// ApplyIntent applies a parsed command.
func (s *Service) ApplyIntent(ctx context.Context, userID string, intent nlu.Intent) (*Result, error) {
	return s.Apply(ctx, userID, Mutation{
		Action:   intent.Action,
		Product:  intent.Product,
		Quantity: intent.Quantity,
		Price:    intent.Price,
	})
}

// Apply validates and applies one mutation. Stock, the transaction entry and
// the totals change together or not at all.
func (s *Service) Apply(ctx context.Context, userID string, mut Mutation) (*Result, error) {
	name, err := validate(&mut)
	if err != nil {
		s.count(string(mut.Action), ErrorKind(err))
		return nil, err
	}

	var res *Result
	// A concurrent add can create the same product between lookup and insert;
	// the second attempt then finds it.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.repo.WithTx(ctx, func(tx *repo.Repository) error {
			var applyErr error
			switch mut.Action {
			case nlu.ActionAdd:
				res, applyErr = s.add(ctx, tx, userID, name, mut)
			case nlu.ActionSell:
				res, applyErr = s.sell(ctx, tx, userID, name, mut)
			}
			return applyErr
		})
		if !errors.Is(err, repo.ErrDuplicate) {
			break
		}
	}

	if err != nil {
		if kind := ErrorKind(err); kind != "" {
			s.count(string(mut.Action), kind)
			return nil, err
		}
		s.count(string(mut.Action), "error")
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("ledger").Inc()
		}
		s.logger.Error("apply mutation failed", "error", err, "action", mut.Action, "user_id", userID)
		return nil, fmt.Errorf("apply %s: %w", mut.Action, err)
	}

	s.count(string(mut.Action), "ok")
	s.logger.Info("mutation applied",
		"user_id", userID,
		"action", mut.Action,
		"product", res.Product.Name,
		"quantity", mut.Quantity,
		"total", res.Transaction.Total,
	)
	return res, nil
}

func (s *Service) add(ctx context.Context, tx *repo.Repository, userID, name string, mut Mutation) (*Result, error) {
	product, err := tx.FindProductByName(ctx, userID, name)
	var cost float64
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if mut.Price == nil {
			return nil, invalidField("price", "price is required when adding a new product")
		}
		cost = *mut.Price
		product, err = tx.InsertProduct(ctx, repo.Product{
			UserID:   userID,
			Name:     name,
			Quantity: mut.Quantity,
			Cost:     cost,
			Price:    roundMoney(cost * s.markup),
		})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find product: %w", err)
	default:
		cost = product.Cost
		if mut.Price != nil {
			cost = *mut.Price
		}
		if err := tx.IncreaseStock(ctx, product.ID, mut.Quantity, cost); err != nil {
			return nil, err
		}
		if product, err = tx.GetProduct(ctx, product.ID); err != nil {
			return nil, fmt.Errorf("reload product: %w", err)
		}
	}

	total := roundMoney(cost * mut.Quantity)
	return s.record(ctx, tx, product, repo.TxAdd, mut.Quantity, cost, total, 0, total)
}

func (s *Service) sell(ctx context.Context, tx *repo.Repository, userID, name string, mut Mutation) (*Result, error) {
	product, err := tx.FindProductByName(ctx, userID, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &InvalidFieldError{
			Field:   "product",
			Kind:    KindProductNotFound,
			Message: fmt.Sprintf("%q is not in your inventory", name),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}

	price := product.Price
	if mut.Price != nil {
		price = *mut.Price
	}
	ok, err := tx.DecreaseStock(ctx, product.ID, mut.Quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &InvalidFieldError{
			Field:   "quantity",
			Kind:    KindInsufficientStock,
			Message: fmt.Sprintf("only %s %s in stock", formatQuantity(product.Quantity), product.Name),
		}
	}
	if product, err = tx.GetProduct(ctx, product.ID); err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}

	total := roundMoney(price * mut.Quantity)
	return s.record(ctx, tx, product, repo.TxSell, mut.Quantity, price, total, total, 0)
}

func (s *Service) record(ctx context.Context, tx *repo.Repository, product *repo.Product, kind string, qty, price, total, sales, expenses float64) (*Result, error) {
	entry, err := tx.InsertTransaction(ctx, repo.Transaction{
		UserID:      product.UserID,
		Type:        kind,
		ProductName: product.Name,
		Quantity:    qty,
		Price:       price,
		Total:       total,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.AddTotals(ctx, product.UserID, sales, expenses); err != nil {
		return nil, err
	}
	profile, err := tx.GetProfile(ctx, product.UserID)
	if err != nil {
		return nil, err
	}
	return &Result{Product: product, Transaction: entry, Profile: profile}, nil
}

// ListProducts returns the user's products, filtered and ranked by query when it is set.
func (s *Service) ListProducts(ctx context.Context, userID, query string) ([]repo.Product, error) {
	items, err := s.repo.ListProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterByQuery(items, query), nil
}

// ListTransactions returns ledger entries newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]repo.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit)
}

// GetProfile returns the running totals.
func (s *Service) GetProfile(ctx context.Context, userID string) (*repo.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func validate(mut *Mutation) (string, error) {
	action, ok := nlu.ParseAction(string(mut.Action))
	if !ok {
		return "", invalidField("action", "action must be add or sell")
	}
	mut.Action = action

	name := NormalizeName(mut.Product)
	if name == "" {
		return "", invalidField("product", "product name is required")
	}
	if math.IsNaN(mut.Quantity) || math.IsInf(mut.Quantity, 0) || mut.Quantity <= 0 {
		return "", invalidField("quantity", "quantity must be a positive number")
	}
	if mut.Price != nil {
		p := *mut.Price
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return "", invalidField("price", "price must be zero or more")
		}
	}
	return name, nil
}

func (s *Service) count(action, result string) {
	if s.metrics == nil {
		return
	}
	if a, ok := nlu.ParseAction(action); ok {
		action = string(a)
	} else {
		action = "unknown"
	}
	s.metrics.LedgerMutation.WithLabelValues(action, result).Inc()
}
