package repository

// Factory describes access to the operational domain repositories.
type Factory interface {
	Orders() OrderRepository
	Stock() StockRepository
	Products() ProductRepository
	Balances() BalanceRepository
}
