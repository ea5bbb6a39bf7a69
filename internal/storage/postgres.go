package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStorage is the durable log of users and completed orders. Sessions
// live in Redis; this log is what the operator counters and exports read.
type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// OrderRecord is a persisted completed order.
type OrderRecord struct {
	ID              int64     `db:"id"`
	UserID          string    `db:"user_id"`
	RegionID        string    `db:"region_id"`
	Language        string    `db:"language"`
	Currency        string    `db:"currency"`
	ProductID       string    `db:"product_id"`
	ProductName     string    `db:"product_name"`
	Quantity        int       `db:"quantity"`
	ChosenPrice     float64   `db:"chosen_price"`
	UnitPrice       float64   `db:"unit_price"`
	TotalAmount     float64   `db:"total_amount"`
	DepositAmount   float64   `db:"deposit_amount"`
	BalanceAmount   float64   `db:"balance_amount"`
	PaymentProofRef string    `db:"payment_proof_ref"`
	ShippingAddress string    `db:"shipping_address"`
	Phase           string    `db:"phase"`
	CreatedAt       time.Time `db:"created_at"`
}

func NewPostgresStorage(ctx context.Context, cfg Config, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{db: db, logger: logger}, nil
}

// UpsertUser records a user's first contact and region snapshot. Repeat calls
// for the same user are no-ops.
func (s *PostgresStorage) UpsertUser(ctx context.Context, userID, regionID, language, currency string) error {
	const query = `
        INSERT INTO users (user_id, region_id, language, currency, first_seen)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := s.db.ExecContext(ctx, query, userID, regionID, language, currency, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SaveOrder appends a completed order and returns its id.
func (s *PostgresStorage) SaveOrder(ctx context.Context, rec OrderRecord) (int64, error) {
	const query = `
        INSERT INTO orders (
            user_id, region_id, language, currency, product_id, product_name,
            quantity, chosen_price, unit_price, total_amount, deposit_amount,
            balance_amount, payment_proof_ref, shipping_address, phase, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id
    `

	var orderID int64
	err := s.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.RegionID,
		rec.Language,
		rec.Currency,
		rec.ProductID,
		rec.ProductName,
		rec.Quantity,
		rec.ChosenPrice,
		rec.UnitPrice,
		rec.TotalAmount,
		rec.DepositAmount,
		rec.BalanceAmount,
		rec.PaymentProofRef,
		rec.ShippingAddress,
		rec.Phase,
		rec.CreatedAt,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to save order: %w", err)
	}
	return orderID, nil
}

// CountUsers returns how many distinct users have ever contacted the bot.
func (s *PostgresStorage) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountOrders returns how many orders have completed.
func (s *PostgresStorage) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// ListOrders returns all completed orders, newest first.
func (s *PostgresStorage) ListOrders(ctx context.Context) ([]OrderRecord, error) {
	const query = `SELECT * FROM orders ORDER BY created_at DESC`
	var orders []OrderRecord
	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStorage) DB() *sqlx.DB {
	return s.db
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
