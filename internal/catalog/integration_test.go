//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

package catalog_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dummydata/internal/catalog"
	"github.com/pgEdge/pgedge-dummydata/internal/testutil"
)

const fixtureSQL = `
INSERT INTO merchant (name) VALUES ('Acme'), ('Globex');
INSERT INTO customer (first_name, last_name, email) VALUES ('Ann', 'Lee', 'ann@example.com'), ('Bob', 'Ray', NULL);
INSERT INTO product (merchant_id, price, amount, name) VALUES
    (1, 1999, 5, 'Anvil'),
    (2, 250, 100, 'Rope'),
    (1, 500, 1, 'Magnet');
INSERT INTO customer_order (customer_id) VALUES (1), (2);
INSERT INTO product_order (order_id, product_id, amount) VALUES
    (1, 1, 2), (1, 2, 4),
    (2, 1, 6), (2, 3, 1);
`

func seed(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := testutil.SchemaDB(t)
	_, err := pool.Exec(context.Background(), fixtureSQL)
	require.NoError(t, err)
	return pool
}

func TestListProducts(t *testing.T) {
	repo := catalog.NewPgRepository(seed(t))

	products, total, err := repo.ListProducts(context.Background(), catalog.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, products, 2)
	assert.Equal(t, "Anvil", products[0].Name)
	assert.Equal(t, catalog.Money(1999), products[0].Price)
	assert.Equal(t, "Acme", products[0].Merchant.Name)

	products, _, err = repo.ListProducts(context.Background(), catalog.Page{Limit: 10, Offset: 2})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Magnet", products[0].Name)
}

func TestGetProduct(t *testing.T) {
	repo := catalog.NewPgRepository(seed(t))

	p, err := repo.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Rope", p.Name)
	assert.Equal(t, "Globex", p.Merchant.Name)

	_, err = repo.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	repo := catalog.NewPgRepository(seed(t))

	orders, total, err := repo.ListOrders(context.Background(), catalog.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orders, 2)

	assert.Equal(t, "Ann", orders[0].Customer.FirstName)
	require.Len(t, orders[0].Products, 2)
	// 2 x 19.99 + 4 x 2.50
	assert.Equal(t, catalog.Money(2*1999+4*250), orders[0].Checkout())
	assert.Nil(t, orders[1].Customer.Email)
}

func TestListRestock(t *testing.T) {
	repo := catalog.NewPgRepository(seed(t))

	restock, total, err := repo.ListRestock(context.Background(), catalog.Page{Limit: 10})
	require.NoError(t, err)
	// Anvil: 8 ordered, 5 in stock. Magnet: 1 ordered, 1 in stock.
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []catalog.Restock{{ProductID: 1, Amount: 3}, {ProductID: 3, Amount: 0}}, restock)
}

func TestUpdateStock(t *testing.T) {
	repo := catalog.NewPgRepository(seed(t))
	ctx := context.Background()

	require.NoError(t, repo.UpdateStock(ctx, 1, 0))
	p, err := repo.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Amount)

	assert.ErrorIs(t, repo.UpdateStock(ctx, 42, 1), catalog.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	pool := seed(t)
	repo := catalog.NewPgRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.DeleteProduct(ctx, 1))
	assert.Equal(t, int64(2), testutil.CountRows(t, pool, "product_order"))
	assert.ErrorIs(t, repo.DeleteProduct(ctx, 1), catalog.ErrNotFound)

	require.NoError(t, repo.DeleteOrder(ctx, 2))
	assert.Equal(t, int64(1), testutil.CountRows(t, pool, "product_order"))
	assert.ErrorIs(t, repo.DeleteOrder(ctx, 2), catalog.ErrNotFound)
}
