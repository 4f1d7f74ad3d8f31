package codes

// CartLine asks for a quantity of codes of one validity period.
type CartLine struct {
	Period   int `json:"period"`
	Quantity int `json:"quantity"`
}

// ValidateCart rejects carts the allocator should never see.
func ValidateCart(cart []CartLine) error {
	if len(cart) == 0 {
		return ErrEmptyCart
	}
	for _, line := range cart {
		if line.Period <= 0 || line.Quantity < 1 {
			return ErrInvalidLine
		}
	}
	return nil
}
