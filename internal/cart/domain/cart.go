package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformedCart is returned by DecodeCart when a persisted snapshot cannot be trusted.
var ErrMalformedCart = errors.New("malformed cart")

type ProductID int64

type Stock struct {
	ID     ProductID `json:"id"`
	Amount int       `json:"amount"`
}

// Product is a catalog document. Only id is interpreted; every other field is
// carried through to the line item untouched.
type Product struct {
	ID  ProductID
	doc []byte
}

// ParseProduct validates a product document and keeps a private copy of it.
func ParseProduct(data []byte) (Product, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return Product{}, errors.New("product: document is not a json object")
	}
	id, ok := integerField(data, "id")
	if !ok {
		return Product{}, errors.New("product: missing numeric id")
	}
	doc := make([]byte, len(data))
	copy(doc, data)
	return Product{ID: ProductID(id), doc: doc}, nil
}

func (p *Product) UnmarshalJSON(data []byte) error {
	parsed, err := ParseProduct(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(docOrEmpty(p.doc), "id", int64(p.ID))
}

// Field reads a display field (gjson path syntax) from the product document.
func (p Product) Field(path string) gjson.Result {
	return gjson.GetBytes(p.doc, path)
}

type LineItem struct {
	ID     ProductID
	Amount int
	doc    []byte
}

// NewLineItem copies the product's display fields into a line item.
func NewLineItem(p Product, amount int) LineItem {
	return LineItem{ID: p.ID, Amount: amount, doc: p.doc}
}

func (li LineItem) Field(path string) gjson.Result {
	return gjson.GetBytes(li.doc, path)
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	out, err := sjson.SetBytes(docOrEmpty(li.doc), "id", int64(li.ID))
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "amount", li.Amount)
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	p, err := ParseProduct(data)
	if err != nil {
		return fmt.Errorf("line item: %w", err)
	}
	amount, ok := integerField(data, "amount")
	if !ok || amount < 1 {
		return fmt.Errorf("line item %d: amount must be a positive integer", p.ID)
	}
	*li = LineItem{ID: p.ID, Amount: int(amount), doc: p.doc}
	return nil
}

// Cart is ordered by insertion and holds at most one line item per product.
// Methods return new carts and never modify the receiver.
type Cart []LineItem

func (c Cart) Find(id ProductID) int {
	for i, item := range c {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Amount returns the quantity held for id, or 0 when absent.
func (c Cart) Amount(id ProductID) int {
	if i := c.Find(id); i >= 0 {
		return c[i].Amount
	}
	return 0
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) WithAmount(id ProductID, amount int) Cart {
	out := c.Clone()
	if i := out.Find(id); i >= 0 {
		out[i].Amount = amount
	}
	return out
}

func (c Cart) Append(item LineItem) Cart {
	out := make(Cart, len(c), len(c)+1)
	copy(out, c)
	return append(out, item)
}

func (c Cart) Without(id ProductID) Cart {
	out := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// EncodeCart serializes the cart as a JSON array; an empty cart is "[]".
func EncodeCart(c Cart) ([]byte, error) {
	if c == nil {
		c = Cart{}
	}
	return json.Marshal(c)
}

func DecodeCart(data []byte) (Cart, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		return nil, fmt.Errorf("%w: not a json array", ErrMalformedCart)
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}

	seen := make(map[ProductID]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %d", ErrMalformedCart, item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	return Cart(items).Clone(), nil
}

func integerField(data []byte, path string) (int64, bool) {
	v := gjson.GetBytes(data, path)
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return 0, false
	}
	return v.Int(), true
}

func docOrEmpty(doc []byte) []byte {
	if len(doc) == 0 {
		return []byte(`{}`)
	}
	return doc
}
