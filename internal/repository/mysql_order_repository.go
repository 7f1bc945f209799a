package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

const mysqlDuplicateEntry = 1062

// MySQLOrderRepository persists orders and deducts inventory in one transaction
type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// Schema creates the tables used by the repository
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id VARCHAR(36) PRIMARY KEY,
	subtotal DECIMAL(12,2) NOT NULL,
	discount_amount DECIMAL(12,2) NOT NULL,
	discount_code VARCHAR(64) NOT NULL DEFAULT '',
	total DECIMAL(12,2) NOT NULL,
	order_type VARCHAR(16) NOT NULL,
	cashier_id VARCHAR(64) NOT NULL,
	cashier_name VARCHAR(128) NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME(6) NOT NULL
);
CREATE TABLE IF NOT EXISTS order_lines (
	order_id VARCHAR(36) NOT NULL,
	position INT NOT NULL,
	item_id VARCHAR(64) NOT NULL,
	name VARCHAR(255) NOT NULL,
	price DECIMAL(12,2) NOT NULL,
	cost DECIMAL(12,2) NOT NULL,
	quantity INT NOT NULL,
	original_stock INT NOT NULL,
	category_id VARCHAR(64) NOT NULL,
	img_url VARCHAR(512) NOT NULL DEFAULT '',
	PRIMARY KEY (order_id, position)
);
CREATE TABLE IF NOT EXISTS inventory (
	item_id VARCHAR(64) PRIMARY KEY,
	stock INT NOT NULL,
	version INT NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func (m *MySQLOrderRepository) Save(ctx context.Context, order *models.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, subtotal, discount_amount, discount_code, total, order_type, cashier_id, cashier_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Subtotal.StringFixed(2), order.DiscountAmount.StringFixed(2), order.DiscountCode,
		order.Total.StringFixed(2), string(order.OrderType), order.CashierID, order.CashierName,
		string(order.Status), order.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, position, item_id, name, price, cost, quantity, original_stock, category_id, img_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, i, line.ID, line.Name, line.Price.StringFixed(2), line.Cost.StringFixed(2),
			line.Quantity, line.OriginalStock, line.CategoryID, line.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET stock = stock - ?, version = version + 1, updated_at = NOW()
			WHERE item_id = ? AND stock >= ?`,
			line.Quantity, line.ID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			var stock int
			err := tx.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE item_id = ?`, line.ID).Scan(&stock)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("item %s: %w", line.ID, ErrInventoryNotTracked)
			case err != nil:
				return fmt.Errorf("query inventory: %w", err)
			}
			return fmt.Errorf("item %s: %w", line.ID, ErrInsufficientStock)
		}
	}

	return tx.Commit()
}

func (m *MySQLOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var (
		order                     models.Order
		subtotal, discount, total string
		orderType, status         string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, subtotal, discount_amount, discount_code, total, order_type, cashier_id, cashier_name, status, created_at
		FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &subtotal, &discount, &order.DiscountCode, &total, &orderType,
		&order.CashierID, &order.CashierName, &status, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if order.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("parse subtotal: %w", err)
	}
	if order.DiscountAmount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("parse discount: %w", err)
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	order.OrderType = models.OrderType(orderType)
	order.Status = models.OrderStatus(status)

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, name, price, cost, quantity, original_stock, category_id, img_url
		FROM order_lines WHERE order_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line        models.CartLine
			price, cost string
		)
		if err := rows.Scan(&line.ID, &line.Name, &price, &cost, &line.Quantity,
			&line.OriginalStock, &line.CategoryID, &line.ImageURL); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if line.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if line.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse cost: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return &order, nil
}

// Migrate applies Schema one statement at a time
func (m *MySQLOrderRepository) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SeedInventory inserts stock rows for items not yet tracked
func (m *MySQLOrderRepository) SeedInventory(ctx context.Context, items []models.InventoryItem) error {
	for _, item := range items {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO inventory (item_id, stock) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE item_id = item_id`,
			item.ID, item.Stock,
		)
		if err != nil {
			return fmt.Errorf("seed inventory %s: %w", item.ID, err)
		}
	}
	return nil
}
