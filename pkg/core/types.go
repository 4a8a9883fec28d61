package core

import "fmt"

// OrderSide represents the taker direction of a trade (buy or sell).
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

// String returns the OKX wire form, "buy" or "sell".
func (s OrderSide) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return fmt.Sprintf("OrderSide(%d)", int(s))
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// Unlike a lenient decoder it rejects anything but buy or sell.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	side, err := ParseOrderSide(string(data))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseOrderSide accepts "buy" or "sell" in either case, quoted or bare.
func ParseOrderSide(raw string) (OrderSide, error) {
	switch raw {
	case "buy", "BUY", `"buy"`, `"BUY"`:
		return SideBuy, nil
	case "sell", "SELL", `"sell"`, `"SELL"`:
		return SideSell, nil
	}
	return 0, fmt.Errorf("unknown order side %s", raw)
}
