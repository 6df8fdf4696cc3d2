//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dummydata/internal/db"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// Repository reads and modifies catalog rows.
type Repository interface {
	ListProducts(ctx context.Context, page Page) ([]Product, int64, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UpdateStock(ctx context.Context, id int64, amount int) error
	ListOrders(ctx context.Context, page Page) ([]Order, int64, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListRestock(ctx context.Context, page Page) ([]Restock, int64, error)
}

// PgRepository is the PostgreSQL Repository.
type PgRepository struct {
	db db.DB
}

// NewPgRepository creates a repository on top of a pool.
func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

const listProductsSQL = `
SELECT p.id, p.name, p.price, p.amount, m.id, m.name, COUNT(*) OVER ()
FROM product p
JOIN merchant m ON m.id = p.merchant_id
ORDER BY p.id
LIMIT $1 OFFSET $2
`

// ListProducts implements Repository.
func (r *PgRepository) ListProducts(ctx context.Context, page Page) ([]Product, int64, error) {
	rows, err := r.db.Query(ctx, listProductsSQL, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	var total int64
	for rows.Next() {
		var p Product
		var price int64
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Amount, &p.Merchant.ID, &p.Merchant.Name, &total); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price = Money(price)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

const getProductSQL = `
SELECT p.id, p.name, p.price, p.amount, m.id, m.name
FROM product p
JOIN merchant m ON m.id = p.merchant_id
WHERE p.id = $1
`

// GetProduct implements Repository.
func (r *PgRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	var price int64
	err := r.db.QueryRow(ctx, getProductSQL, id).
		Scan(&p.ID, &p.Name, &price, &p.Amount, &p.Merchant.ID, &p.Merchant.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	p.Price = Money(price)
	return p, nil
}

// DeleteProduct implements Repository. Order lines referencing the product
// are removed with it.
func (r *PgRepository) DeleteProduct(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "product", id)
}

// DeleteOrder implements Repository. The order's lines are removed with it.
func (r *PgRepository) DeleteOrder(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "customer_order", id)
}

func (r *PgRepository) deleteByID(ctx context.Context, table string, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStock implements Repository.
func (r *PgRepository) UpdateStock(ctx context.Context, id int64, amount int) error {
	tag, err := r.db.Exec(ctx, "UPDATE product SET amount = $1 WHERE id = $2", amount, id)
	if err != nil {
		return fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listOrdersSQL = `
SELECT co.id, c.id, c.first_name, c.last_name, c.email, COUNT(*) OVER ()
FROM customer_order co
JOIN customer c ON c.id = co.customer_id
ORDER BY co.id
LIMIT $1 OFFSET $2
`

const orderLinesSQL = `
SELECT po.order_id, p.id, p.name, po.amount, p.price, m.id, m.name
FROM product_order po
JOIN product p ON p.id = po.product_id
JOIN merchant m ON m.id = p.merchant_id
WHERE po.order_id = ANY($1)
ORDER BY po.order_id, po.id
`

// ListOrders implements Repository. Each order carries its lines with the
// ordered quantity in Product.Amount.
func (r *PgRepository) ListOrders(ctx context.Context, page Page) ([]Order, int64, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []Order{}
	var total int64
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Customer.ID, &o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email, &total); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	lines, err := r.db.Query(ctx, orderLinesSQL, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer lines.Close()

	for lines.Next() {
		var orderID, price int64
		var p Product
		if err := lines.Scan(&orderID, &p.ID, &p.Name, &p.Amount, &price, &p.Merchant.ID, &p.Merchant.Name); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order line: %w", err)
		}
		p.Price = Money(price)
		i := index[orderID]
		orders[i].Products = append(orders[i].Products, p)
	}
	if err := lines.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list order lines: %w", err)
	}
	return orders, total, nil
}

const listRestockSQL = `
SELECT p.id, SUM(po.amount) - p.amount, COUNT(*) OVER ()
FROM product_order po
JOIN product p ON p.id = po.product_id
GROUP BY p.id
HAVING p.amount - SUM(po.amount) <= 0
ORDER BY p.id
LIMIT $1 OFFSET $2
`

// ListRestock implements Repository.
func (r *PgRepository) ListRestock(ctx context.Context, page Page) ([]Restock, int64, error) {
	rows, err := r.db.Query(ctx, listRestockSQL, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list restock: %w", err)
	}
	defer rows.Close()

	restock := []Restock{}
	var total int64
	for rows.Next() {
		var rs Restock
		if err := rows.Scan(&rs.ProductID, &rs.Amount, &total); err != nil {
			return nil, 0, fmt.Errorf("failed to scan restock: %w", err)
		}
		restock = append(restock, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list restock: %w", err)
	}
	return restock, total, nil
}
