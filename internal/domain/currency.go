package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Currency identifies a token on a specific chain. Native coins carry the
// wrapped token address so graph edges and pool lookups always resolve to
// an ERC20 address.
type Currency struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	IsNative bool           `json:"isNative"`
	Wrapped  common.Address `json:"wrapped,omitempty"`
}

// Canonical returns the address used for pool lookups. For native coins
// that is the wrapped token address.
func (c Currency) Canonical() common.Address {
	if c.IsNative && c.Wrapped != (common.Address{}) {
		return c.Wrapped
	}
	return c.Address
}

// Equal reports whether two currencies are interchangeable for routing.
// A native coin equals its wrapped token on the same chain.
func (c Currency) Equal(o Currency) bool {
	if c.ChainID != o.ChainID {
		return false
	}
	return c.Canonical() == o.Canonical()
}

// SortsBefore orders currencies by canonical address for pool canonicalization.
func (c Currency) SortsBefore(o Currency) bool {
	a, b := c.Canonical(), o.Canonical()
	return a.Cmp(b) < 0
}

// CurrencyAmount pairs a currency with a raw integer amount in base units.
type CurrencyAmount struct {
	Currency Currency
	Amount   *big.Int
}

func NewCurrencyAmount(c Currency, amount *big.Int) CurrencyAmount {
	if amount == nil {
		amount = new(big.Int)
	}
	return CurrencyAmount{Currency: c, Amount: amount}
}

// Price is an exact rational exchange rate between two currencies.
// All comparisons cross-multiply so no precision is lost.
type Price struct {
	Base        Currency
	Quote       Currency
	Numerator   *big.Int
	Denominator *big.Int
}

func NewPrice(base, quote Currency, denominator, numerator *big.Int) Price {
	return Price{
		Base:        base,
		Quote:       quote,
		Numerator:   new(big.Int).Set(numerator),
		Denominator: new(big.Int).Set(denominator),
	}
}

// Invert flips the price to quote the base currency.
func (p Price) Invert() Price {
	return Price{
		Base:        p.Quote,
		Quote:       p.Base,
		Numerator:   p.Denominator,
		Denominator: p.Numerator,
	}
}

// Mul chains two prices, e.g. A/B * B/C = A/C.
func (p Price) Mul(o Price) Price {
	return Price{
		Base:        p.Base,
		Quote:       o.Quote,
		Numerator:   new(big.Int).Mul(p.Numerator, o.Numerator),
		Denominator: new(big.Int).Mul(p.Denominator, o.Denominator),
	}
}

// Cmp compares two prices by cross-multiplication.
func (p Price) Cmp(o Price) int {
	lhs := new(big.Int).Mul(p.Numerator, o.Denominator)
	rhs := new(big.Int).Mul(o.Numerator, p.Denominator)
	return lhs.Cmp(rhs)
}

// QuoteAmount converts a base amount through the price, truncating toward zero.
func (p Price) QuoteAmount(baseAmount *big.Int) *big.Int {
	if p.Denominator.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(baseAmount, p.Numerator)
	return out.Div(out, p.Denominator)
}
