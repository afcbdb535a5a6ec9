package domain

type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Seed is the fixture layout served by the development catalog.
type Seed struct {
	Products []Product `json:"products"`
	Stock    []Stock   `json:"stock"`
}
