package domain

// Cart is the shopper's pending selection. It lives entirely in the client
// session and is replaced wholesale in the session store after each mutation;
// the server never keeps an authoritative copy between requests.
type Cart struct {
	Items []CartItem `json:"items"`
}

// CartItem references a product by id. Product is a transient snapshot
// attached for display and validation only; it is never persisted.
type CartItem struct {
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

func NewCart() *Cart {
	return &Cart{Items: []CartItem{}}
}

// AddItem merges into an existing line for the same product or appends a new
// one. Stock is not checked here; callers validate against the catalog.
func (c *Cart) AddItem(productID int64, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. A missing line is left as is; callers add first.
func (c *Cart) UpdateQuantity(productID int64, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem deletes the line for productID if present. Removing an absent
// line is a no-op.
func (c *Cart) RemoveItem(productID int64) {
	items := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	c.Items = items
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalWithProducts sums price*quantity over lines carrying a product
// snapshot. Lines without a snapshot contribute zero, so this is a display
// estimate only; the authoritative total is computed at order time.
func (c *Cart) TotalWithProducts() float64 {
	var total float64
	for _, item := range c.Items {
		if item.Product != nil {
			total += item.Product.Price * float64(item.Quantity)
		}
	}
	return total
}
