package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/domain/repository"
)

const pendingOrderConstraint = "orders_one_pending_per_user"

// pgxPool abstracts the subset of pgxpool.Pool used by the storage so tests
// can substitute a mock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type stockRepository struct {
	storage *Storage
}

type productRepository struct {
	storage *Storage
}

type balanceRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Stock() repository.StockRepository {
	return &stockRepository{storage: s}
}

func (s *Storage) Products() repository.ProductRepository {
	return &productRepository{storage: s}
}

func (s *Storage) Balances() repository.BalanceRepository {
	return &balanceRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            category TEXT NOT NULL,
            price_standard BIGINT NOT NULL,
            price_reseller BIGINT NOT NULL,
            sold_count BIGINT NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS product_stocks (
            id UUID PRIMARY KEY,
            product_id BIGINT NOT NULL REFERENCES products(id),
            content TEXT NOT NULL,
            sold BOOLEAN NOT NULL DEFAULT FALSE,
            reserved_order_id BIGINT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            invoice_id TEXT UNIQUE NOT NULL,
            user_id BIGINT NOT NULL,
            subtotal BIGINT NOT NULL,
            discount BIGINT NOT NULL DEFAULT 0,
            fee BIGINT NOT NULL DEFAULT 0,
            total BIGINT NOT NULL,
            payment_method TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL REFERENCES products(id),
            stock_unit_id UUID NOT NULL REFERENCES product_stocks(id),
            unit_price BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS balances (
            user_id BIGINT PRIMARY KEY,
            current BIGINT NOT NULL DEFAULT 0,
            spent BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_one_pending_per_user
            ON orders(user_id) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_pending_age ON orders(created_at) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_available ON product_stocks(product_id) WHERE sold = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_reservation ON product_stocks(reserved_order_id) WHERE reserved_order_id IS NOT NULL`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, invoice_id, user_id, subtotal, discount, fee, total, payment_method, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.InvoiceID, &o.UserID, &o.Subtotal, &o.Discount, &o.Fee, &o.Total, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		created, err := r.storage.insertOrderTx(ctx, tx, draft, model.OrderStatusPending)
		if err != nil {
			return err
		}
		if err := r.storage.reserveLinesTx(ctx, tx, created, draft.Lines); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) CreateSettledWithBalance(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.storage.debitBalanceTx(ctx, tx, draft.UserID, draft.Total); err != nil {
			return err
		}
		created, err := r.storage.insertOrderTx(ctx, tx, draft, model.OrderStatusPaid)
		if err != nil {
			return err
		}
		if err := r.storage.reserveLinesTx(ctx, tx, created, draft.Lines); err != nil {
			return err
		}
		if err := r.storage.finalizeTx(ctx, tx, created.ID); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Storage) insertOrderTx(ctx context.Context, tx pgx.Tx, draft model.OrderDraft, status model.OrderStatus) (*model.Order, error) {
	const query = `INSERT INTO orders (invoice_id, user_id, subtotal, discount, fee, total, payment_method, status)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   RETURNING id, created_at, updated_at`
	order := model.Order{
		InvoiceID:     draft.InvoiceID,
		UserID:        draft.UserID,
		Subtotal:      draft.Subtotal,
		Discount:      draft.Discount,
		Fee:           draft.Fee,
		Total:         draft.Total,
		PaymentMethod: draft.PaymentMethod,
		Status:        status,
	}
	err := tx.QueryRow(ctx, query,
		draft.InvoiceID, draft.UserID, draft.Subtotal, draft.Discount, draft.Fee, draft.Total, draft.PaymentMethod, status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == pendingOrderConstraint {
				return nil, domainErrors.ErrDuplicatePendingOrder
			}
			return nil, fmt.Errorf("invoice id collision: %w", err)
		}
		return nil, err
	}
	return &order, nil
}

func (s *Storage) reserveLinesTx(ctx context.Context, tx pgx.Tx, order *model.Order, lines []model.DraftLine) error {
	for _, line := range lines {
		units, err := s.reserveUnitsTx(ctx, tx, line.ProductID, line.Quantity, order.ID)
		if err != nil {
			return err
		}
		for _, unit := range units {
			item := model.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				StockUnitID: unit.ID,
				UnitPrice:   line.UnitPrice,
			}
			const insertItem = `INSERT INTO order_items (order_id, product_id, stock_unit_id, unit_price)
                                VALUES ($1, $2, $3, $4) RETURNING id`
			if err := tx.QueryRow(ctx, insertItem, item.OrderID, item.ProductID, item.StockUnitID, item.UnitPrice).Scan(&item.ID); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
	}
	return nil
}

func (s *Storage) reserveUnitsTx(ctx context.Context, tx pgx.Tx, productID int64, quantity int, orderID int64) ([]model.StockUnit, error) {
	const selectUnits = `SELECT id, content FROM product_stocks
                         WHERE product_id=$1 AND sold=FALSE
                         ORDER BY created_at
                         FOR UPDATE SKIP LOCKED
                         LIMIT $2`
	rows, err := tx.Query(ctx, selectUnits, productID, quantity)
	if err != nil {
		return nil, err
	}

	var units []model.StockUnit
	for rows.Next() {
		u := model.StockUnit{ProductID: productID}
		if err := rows.Scan(&u.ID, &u.Content); err != nil {
			rows.Close()
			return nil, err
		}
		units = append(units, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(units) < quantity {
		return nil, domainErrors.ErrInsufficientStock
	}

	ids := make([]string, 0, len(units))
	for i := range units {
		units[i].Sold = true
		units[i].ReservedOrderID = &orderID
		ids = append(ids, units[i].ID)
	}

	const markReserved = `UPDATE product_stocks
                          SET sold=TRUE, reserved_order_id=$1, updated_at=NOW()
                          WHERE id = ANY($2)`
	tag, err := tx.Exec(ctx, markReserved, orderID, ids)
	if err != nil {
		return nil, err
	}
	if int(tag.RowsAffected()) != len(ids) {
		return nil, domainErrors.ErrInsufficientStock
	}
	return units, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if err := r.storage.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE invoice_id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if err := r.storage.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) PendingOrderFor(ctx context.Context, userID int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 AND status='pending' ORDER BY created_at DESC LIMIT 1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.storage.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var result []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.InvoiceID, &o.UserID, &o.Subtotal, &o.Discount, &o.Fee, &o.Total, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) loadItems(ctx context.Context, order *model.Order) error {
	const query = `SELECT id, order_id, product_id, stock_unit_id, unit_price FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.StockUnitID, &item.UnitPrice); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// MarkPaid transitions pending -> paid and finalizes the stock reservation in
// one transaction. The status check and update are a single compare-and-swap:
// a concurrent expiry that committed first makes this fail with
// ErrInvalidTransition instead of overwriting the terminal state.
func (r *orderRepository) MarkPaid(ctx context.Context, orderID int64) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		query := `UPDATE orders SET status='paid', updated_at=NOW()
                  WHERE id=$1 AND status='pending'
                  RETURNING ` + orderColumns
		updated, err := scanOrder(tx.QueryRow(ctx, query, orderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.storage.transitionConflictTx(ctx, tx, orderID)
			}
			return err
		}
		if err := r.storage.finalizeTx(ctx, tx, orderID); err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.storage.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) MarkExpired(ctx context.Context, orderID int64) (int, error) {
	return r.storage.terminateOrder(ctx, orderID, model.OrderStatusExpired)
}

func (r *orderRepository) MarkCancelled(ctx context.Context, orderID int64) (int, error) {
	return r.storage.terminateOrder(ctx, orderID, model.OrderStatusCancelled)
}

func (s *Storage) terminateOrder(ctx context.Context, orderID int64, status model.OrderStatus) (int, error) {
	released := 0
	err := s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending'`
		tag, err := tx.Exec(ctx, query, orderID, status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return s.transitionConflictTx(ctx, tx, orderID)
		}
		n, err := s.releaseTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		released = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// transitionConflictTx distinguishes a missing order from a lost CAS race.
func (s *Storage) transitionConflictTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	var status model.OrderStatus
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("order %d is %s: %w", orderID, status, domainErrors.ErrInvalidTransition)
}

func (s *Storage) finalizeTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	const query = `UPDATE products SET sold_count = sold_count + counted.n
                   FROM (SELECT product_id, COUNT(*) AS n FROM product_stocks WHERE reserved_order_id=$1 GROUP BY product_id) AS counted
                   WHERE products.id = counted.product_id`
	_, err := tx.Exec(ctx, query, orderID)
	return err
}

func (s *Storage) releaseTx(ctx context.Context, tx pgx.Tx, orderID int64) (int, error) {
	const query = `UPDATE product_stocks SET sold=FALSE, reserved_order_id=NULL, updated_at=NOW()
                   WHERE reserved_order_id=$1`
	tag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *orderRepository) SelectExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
              WHERE status='pending' AND created_at <= $1
              ORDER BY created_at
              LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepository) CountOrdersSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE user_id=$1 AND created_at >= $2`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query, userID, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *orderRepository) CountFailedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE user_id=$1 AND status IN ('expired', 'cancelled') AND created_at >= $2`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query, userID, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- StockRepository implementation ---

func (r *stockRepository) AvailableCount(ctx context.Context, productID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM product_stocks WHERE product_id=$1 AND sold=FALSE`
	var n int
	if err := r.storage.pool.QueryRow(ctx, query, productID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *stockRepository) Reserve(ctx context.Context, productID int64, quantity int, orderID int64) ([]model.StockUnit, error) {
	var units []model.StockUnit
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		reserved, err := r.storage.reserveUnitsTx(ctx, tx, productID, quantity, orderID)
		if err != nil {
			return err
		}
		units = reserved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *stockRepository) Release(ctx context.Context, orderID int64) (int, error) {
	released := 0
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		n, err := r.storage.releaseTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		released = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (r *stockRepository) Finalize(ctx context.Context, orderID int64) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return r.storage.finalizeTx(ctx, tx, orderID)
	})
}

func (r *stockRepository) UnitsForOrder(ctx context.Context, orderID int64) ([]model.StockUnit, error) {
	const query = `SELECT id, product_id, content, sold, reserved_order_id, created_at, updated_at
                   FROM product_stocks WHERE reserved_order_id=$1 ORDER BY created_at`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []model.StockUnit
	for rows.Next() {
		var u model.StockUnit
		if err := rows.Scan(&u.ID, &u.ProductID, &u.Content, &u.Sold, &u.ReservedOrderID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// --- ProductRepository implementation ---

func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	const query = `SELECT id, name, category, price_standard, price_reseller, sold_count, active FROM products WHERE id=$1`
	var p model.Product
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Category, &p.PriceStandard, &p.PriceReseller, &p.SoldCount, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	const query = `SELECT id, name, category, price_standard, price_reseller, sold_count, active
                   FROM products WHERE active=TRUE ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.PriceStandard, &p.PriceReseller, &p.SoldCount, &p.Active); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- BalanceRepository implementation ---

func (r *balanceRepository) GetSummary(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	const query = `SELECT current, spent FROM balances WHERE user_id=$1`
	var summary model.BalanceSummary
	err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&summary.Current, &summary.Spent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.BalanceSummary{}, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *balanceRepository) Adjust(ctx context.Context, userID int64, delta int64) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if delta < 0 {
			return r.storage.debitBalanceTx(ctx, tx, userID, -delta)
		}
		const upsert = `INSERT INTO balances (user_id, current, spent)
                        VALUES ($1, $2, 0)
                        ON CONFLICT (user_id) DO UPDATE SET current = balances.current + EXCLUDED.current`
		_, err := tx.Exec(ctx, upsert, userID, delta)
		return err
	})
}

func (s *Storage) debitBalanceTx(ctx context.Context, tx pgx.Tx, userID, amount int64) error {
	const balanceQuery = `SELECT current FROM balances WHERE user_id=$1 FOR UPDATE`
	var current int64
	err := tx.QueryRow(ctx, balanceQuery, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current = 0
		} else {
			return err
		}
	}
	if current < amount {
		return domainErrors.ErrInsufficientBalance
	}

	const update = `UPDATE balances SET current = current - $2, spent = spent + $2 WHERE user_id=$1`
	if _, err := tx.Exec(ctx, update, userID, amount); err != nil {
		return err
	}
	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
