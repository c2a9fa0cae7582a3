package domain

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       Money     `json:"price"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    *Category `json:"category,omitempty"`
}

// CartProduct returns the fields a cart line item is built from.
func (p Product) CartProduct() CartProduct {
	return CartProduct{ID: p.ID, Name: p.Name, Price: p.Price}
}
