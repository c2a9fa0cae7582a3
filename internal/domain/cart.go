package domain

// CartProduct is what the shopper adds to the cart; quantity is tracked separately.
type CartProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// LineItem is one product id plus quantity within the cart.
// The JSON shape matches what the checkout endpoint expects.
type LineItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() Money {
	return l.Price.Times(l.Quantity)
}
