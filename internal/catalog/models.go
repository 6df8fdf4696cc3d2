//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package catalog implements the read and maintenance API over the order
// schema: product and order listings, restock hints, stock updates and
// deletes.
package catalog

// Money is an amount in cents.
type Money int64

// Float returns the amount in currency units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Customer is the customer attached to an order.
type Customer struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     *string `json:"email"`
}

// Merchant owns products.
type Merchant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a product as stored. On an order, Amount is the ordered
// quantity rather than the stock level.
type Product struct {
	ID       int64
	Merchant Merchant
	Name     string
	Price    Money
	Amount   int64
}

// ProductView is the JSON shape of a product with the price in currency units.
type ProductView struct {
	ID       int64    `json:"id"`
	Merchant Merchant `json:"merchant"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Amount   int64    `json:"amount"`
}

// View converts the product for output.
func (p Product) View() ProductView {
	return ProductView{
		ID:       p.ID,
		Merchant: p.Merchant,
		Name:     p.Name,
		Price:    p.Price.Float(),
		Amount:   p.Amount,
	}
}

// Order is a customer order with its lines.
type Order struct {
	ID       int64
	Customer Customer
	Products []Product
}

// Checkout sums price times quantity over the order lines.
func (o Order) Checkout() Money {
	var total Money
	for _, p := range o.Products {
		total += p.Price * Money(p.Amount)
	}
	return total
}

// OrderView is the JSON shape of an order.
type OrderView struct {
	ID       int64         `json:"id"`
	Customer Customer      `json:"customer"`
	Products []ProductView `json:"products"`
	Checkout float64       `json:"checkout"`
}

// View converts the order for output.
func (o Order) View() OrderView {
	products := make([]ProductView, 0, len(o.Products))
	for _, p := range o.Products {
		products = append(products, p.View())
	}
	return OrderView{
		ID:       o.ID,
		Customer: o.Customer,
		Products: products,
		Checkout: o.Checkout().Float(),
	}
}

// Restock is a product whose ordered quantity has caught up with its stock.
// Amount is the shortfall.
type Restock struct {
	ProductID int64 `json:"productId"`
	Amount    int64 `json:"amount"`
}

// StockUpdate is the body of a stock update.
type StockUpdate struct {
	Amount *int `json:"amount" validate:"required,gte=0"`
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// List is a page of results together with the total row count.
type List[T any] struct {
	Total int64 `json:"total"`
	Data  []T   `json:"data"`
}
