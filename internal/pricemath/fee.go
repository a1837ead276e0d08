package pricemath

import "fmt"

const (
	// protocolFeeBits is the width of the packed on-chain protocol fee
	// field: two 12-bit halves, token0 in the low bits.
	protocolFeeBits = 24
	protocolFeeMax  = 1<<protocolFeeBits - 1

	// ProtocolFeeDenominator bounds each 12-bit half.
	ProtocolFeeDenominator = 1 << 12
)

// ParseProtocolFee splits a packed 24-bit protocol fee field into its
// token0 and token1 halves.
func ParseProtocolFee(packed uint32) (fee0, fee1 uint16, err error) {
	if packed > protocolFeeMax {
		return 0, 0, fmt.Errorf("%w: protocol fee %#x exceeds 24 bits", ErrInvalidPriceMath, packed)
	}
	return uint16(packed % ProtocolFeeDenominator), uint16(packed >> 12), nil
}

// PackProtocolFee combines two 12-bit protocol fee halves into the packed
// on-chain representation. Inverse of ParseProtocolFee for all valid halves.
func PackProtocolFee(fee0, fee1 uint16) (uint32, error) {
	if fee0 >= ProtocolFeeDenominator || fee1 >= ProtocolFeeDenominator {
		return 0, fmt.Errorf("%w: protocol fee half exceeds 12 bits", ErrInvalidPriceMath)
	}
	return uint32(fee1)<<12 | uint32(fee0), nil
}
