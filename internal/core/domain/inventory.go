package domain

type InventoryRecord struct {
	ID        int64
	ProductID int64
	Quantity  int
	Version   int64 // optimistic locking
}

// Product is the catalog's view of a product. It is fetched per request and never stored.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

type PurchaseResult struct {
	Record             InventoryRecord
	PurchasedAmount    int
	ProductDescription string
}
