//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dummydata generates random rows for the order schema and inserts
// them in bulk.
package dummydata

// Kind is an entity kind that can be requested by name.
type Kind int

const (
	// KindUnknown is returned for names that do not map to a kind.
	KindUnknown Kind = iota
	Customers
	Merchants
	Products
	CustomerOrders
	ProductOrders
)

// Kinds lists every kind in insertion order. Referenced tables come first.
var Kinds = []Kind{Customers, Merchants, Products, CustomerOrders, ProductOrders}

var kindNames = map[Kind]string{
	Customers:      "customers",
	Merchants:      "merchants",
	Products:       "products",
	CustomerOrders: "customerOrders",
	ProductOrders:  "productOrders",
}

var kindTables = map[Kind]string{
	Customers:      "customer",
	Merchants:      "merchant",
	Products:       "product",
	CustomerOrders: "customer_order",
	ProductOrders:  "product_order",
}

// ParseKind maps a request key to its kind. The boolean is false for
// unrecognized names.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// String returns the request key for the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Table returns the table the kind is inserted into.
func (k Kind) Table() string {
	return kindTables[k]
}
