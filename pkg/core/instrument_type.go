package core

import "fmt"

// InstrumentType is the OKX instrument family.
type InstrumentType int

const (
	InstrumentSpot InstrumentType = iota
	InstrumentMargin
	InstrumentSwap
	InstrumentFutures
	InstrumentOption
)

var instrumentTypeNames = [...]string{
	"SPOT",
	"MARGIN",
	"SWAP",
	"FUTURES",
	"OPTION",
}

// String returns the wire name, e.g. "SWAP".
func (t InstrumentType) String() string {
	if t < 0 || int(t) >= len(instrumentTypeNames) {
		return fmt.Sprintf("InstrumentType(%d)", int(t))
	}
	return instrumentTypeNames[t]
}

// ParseInstrumentType maps a wire name to an InstrumentType.
func ParseInstrumentType(s string) (InstrumentType, error) {
	for i, name := range instrumentTypeNames {
		if name == s {
			return InstrumentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown instrument type %q", s)
}
