package pricemath

import (
	"fmt"
	"math"
)

// BinIDOffset centers bin ids so that id 2^23 is price 1.0.
const BinIDOffset uint32 = 1 << 23

// maxBinPriceLog bounds |ln(price)| so bin prices stay normal float64
// values in both directions. Ids beyond the bound for their step are
// rejected rather than rounded through denormals.
const maxBinPriceLog = 700.0

// binPriceBase returns 1 + binStep/10000, the per-bin price multiplier.
func binPriceBase(binStep uint16) float64 {
	return 1 + float64(binStep)/float64(BasisPointMax)
}

// PriceFromBinID returns the price of bin id for the given bin step.
// Bin prices are geometric: price(id) = (1 + binStep/10000)^(id - 2^23).
// The exponentiation runs in log space; a round trip through
// BinIDFromPrice is exact only to within one bin id.
func PriceFromBinID(id uint32, binStep uint16) (float64, error) {
	if binStep == 0 {
		return 0, fmt.Errorf("%w: bin step must be positive", ErrInvalidPriceMath)
	}
	logPrice := float64(int64(id)-int64(BinIDOffset)) * math.Log(binPriceBase(binStep))
	if math.Abs(logPrice) > maxBinPriceLog {
		return 0, fmt.Errorf("%w: bin id %d outside representable price range", ErrInvalidPriceMath, id)
	}
	return math.Exp(logPrice), nil
}

// BinIDFromPrice returns the bin id whose price is closest to the given
// price for the given bin step.
func BinIDFromPrice(price float64, binStep uint16) (uint32, error) {
	if binStep == 0 || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, fmt.Errorf("%w: price and bin step must be positive", ErrInvalidPriceMath)
	}
	exp := math.Log(price) / math.Log(binPriceBase(binStep))
	id := int64(math.Round(exp)) + int64(BinIDOffset)
	if id < 0 || id > math.MaxUint32 {
		return 0, fmt.Errorf("%w: price out of bin range", ErrInvalidPriceMath)
	}
	return uint32(id), nil
}

// GetIDSlippage converts a price slippage fraction (0.01 == 1%) into the
// number of bins the active id may drift before the price moves past the
// tolerance. The result is non-negative and monotone in the slippage.
func GetIDSlippage(priceSlippage float64, binStep uint16) (uint32, error) {
	if binStep == 0 || priceSlippage < 0 || math.IsInf(priceSlippage, 0) || math.IsNaN(priceSlippage) {
		return 0, fmt.Errorf("%w: invalid slippage or bin step", ErrInvalidPriceMath)
	}
	bins := math.Floor(math.Log(1+priceSlippage) / math.Log(binPriceBase(binStep)))
	if bins < 0 {
		bins = 0
	}
	if bins > math.MaxUint32 {
		bins = math.MaxUint32
	}
	return uint32(bins), nil
}
