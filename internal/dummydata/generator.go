//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dummydata

import (
	"sync"

	"github.com/pgEdge/pgedge-dummydata/internal/datagen"
	"github.com/pgEdge/pgedge-dummydata/internal/stats"
)

// Value ranges for generated columns.
const (
	MaxPrice        = 99999
	MaxStock        = 99999
	MaxLineQuantity = 999
)

// Column widths from schema.sql.
const (
	nameWidth  = 100
	emailWidth = 255
	titleWidth = 200
)

// Customer is a generated customer row.
type Customer struct {
	FirstName string
	LastName  string
	Email     *string
}

// Merchant is a generated merchant row.
type Merchant struct {
	Name string
}

// Product is a generated product row. Price is in cents.
type Product struct {
	MerchantID int64
	Price      int32
	Amount     int32
	Name       string
}

// CustomerOrder is a generated order header.
type CustomerOrder struct {
	CustomerID int64
}

// ProductOrder is a generated order line.
type ProductOrder struct {
	OrderID   int64
	ProductID int64
	Amount    int32
}

// Generator produces rows whose foreign keys lie within the given bounds.
// It is safe for concurrent use.
type Generator struct {
	mu               sync.Mutex
	faker            *datagen.Faker
	emailProbability float64
}

// NewGenerator creates a generator. A nil faker gets a randomly seeded one.
func NewGenerator(faker *datagen.Faker, emailProbability float64) *Generator {
	if faker == nil {
		faker = datagen.NewFaker()
	}
	return &Generator{
		faker:            faker,
		emailProbability: emailProbability,
	}
}

// Customers generates n customers. Each has an email with the configured
// probability.
func (g *Generator) Customers(n int) []Customer {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]Customer, n)
	for i := range rows {
		rows[i] = Customer{
			FirstName: datagen.Truncate(g.faker.FirstName(), nameWidth),
			LastName:  datagen.Truncate(g.faker.LastName(), nameWidth),
			Email:     g.faker.OptionalString(datagen.Truncate(g.faker.Email(), emailWidth), g.emailProbability),
		}
	}
	return rows
}

// Merchants generates n merchants.
func (g *Generator) Merchants(n int) []Merchant {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]Merchant, n)
	for i := range rows {
		rows[i] = Merchant{Name: datagen.Truncate(g.faker.Company(), titleWidth)}
	}
	return rows
}

// Products generates n products owned by merchants in [1, b.MaxMerchant].
func (g *Generator) Products(n int, b stats.Bounds) []Product {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]Product, n)
	for i := range rows {
		rows[i] = Product{
			MerchantID: g.id(b.MaxMerchant),
			Price:      int32(g.faker.Int(1, MaxPrice)),
			Amount:     int32(g.faker.Int(1, MaxStock)),
			Name:       datagen.Truncate(g.faker.ProductName(), titleWidth),
		}
	}
	return rows
}

// CustomerOrders generates n orders placed by customers in [1, b.MaxCustomer].
func (g *Generator) CustomerOrders(n int, b stats.Bounds) []CustomerOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]CustomerOrder, n)
	for i := range rows {
		rows[i] = CustomerOrder{CustomerID: g.id(b.MaxCustomer)}
	}
	return rows
}

// ProductOrders generates n order lines. Pairs may repeat; the store drops
// duplicates.
func (g *Generator) ProductOrders(n int, b stats.Bounds) []ProductOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows := make([]ProductOrder, n)
	for i := range rows {
		rows[i] = ProductOrder{
			OrderID:   g.id(b.MaxCustomerOrder),
			ProductID: g.id(b.MaxProduct),
			Amount:    int32(g.faker.Int(1, MaxLineQuantity)),
		}
	}
	return rows
}

// id draws a key in [1, upper]. Caller holds g.mu.
func (g *Generator) id(upper int64) int64 {
	return int64(g.faker.Int(1, int(max(1, upper))))
}
