package model

import "time"

// Product is a catalog entry. Catalog management lives outside the core;
// the core only reads products and increments sold counts on settlement.
type Product struct {
	ID            int64
	Name          string
	Category      string
	PriceStandard int64
	PriceReseller int64
	SoldCount     int64
	Active        bool
}

// StockUnit is one sellable digital artifact belonging to a product. An
// available unit has Sold=false and ReservedOrderID=nil; a reserved unit is
// exclusively claimed by that order until released or finalized.
type StockUnit struct {
	ID              string
	ProductID       int64
	Content         string
	Sold            bool
	ReservedOrderID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
