package pricemath

import (
	"math"
	"testing"

	"github.com/zeebo/assert"
)

func TestPriceFromBinIDCenter(t *testing.T) {
	price, err := PriceFromBinID(BinIDOffset, 25)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, price)
}

func TestBinIDPriceRoundTrip(t *testing.T) {
	// Log-space conversions are exact only to within one bin id. The
	// widest step here (1%) keeps ids up to ~70346 from center
	// representable, so the extremes sit just inside that.
	steps := []uint16{1, 10, 25, 100}
	ids := []uint32{
		BinIDOffset - 70000,
		BinIDOffset - 1,
		BinIDOffset,
		BinIDOffset + 1,
		BinIDOffset + 5000,
		BinIDOffset + 70000,
	}
	for _, step := range steps {
		for _, id := range ids {
			price, err := PriceFromBinID(id, step)
			assert.NoError(t, err)

			got, err := BinIDFromPrice(price, step)
			assert.NoError(t, err)

			diff := int64(got) - int64(id)
			if diff < -1 || diff > 1 {
				t.Fatalf("step %d id %d: round trip drifted to %d", step, id, got)
			}
		}
	}
}

func TestPriceFromBinIDRangeDependsOnStep(t *testing.T) {
	// id 2^23 - 100000 is representable at a fine step but not at a wide
	// one, where the price would leave the float64 range
	_, err := PriceFromBinID(BinIDOffset-100000, 1)
	assert.NoError(t, err)

	_, err = PriceFromBinID(BinIDOffset-100000, 100)
	assert.Error(t, err)
	_, err = PriceFromBinID(BinIDOffset+100000, 100)
	assert.Error(t, err)
}

func TestBinIDFromPriceRejectsInvalid(t *testing.T) {
	_, err := BinIDFromPrice(0, 25)
	assert.Error(t, err)
	_, err = BinIDFromPrice(-1, 25)
	assert.Error(t, err)
	_, err = BinIDFromPrice(math.Inf(1), 25)
	assert.Error(t, err)
	_, err = BinIDFromPrice(1.5, 0)
	assert.Error(t, err)
}

func TestGetIDSlippage(t *testing.T) {
	// binStep 25 means one bin is 0.25%; 1% slippage spans ~3 full bins
	bins, err := GetIDSlippage(0.01, 25)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), bins)

	// below one bin width rounds down to zero
	bins, err = GetIDSlippage(0.001, 25)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), bins)

	// monotone in the slippage
	prev := uint32(0)
	for _, slip := range []float64{0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5} {
		got, err := GetIDSlippage(slip, 10)
		assert.NoError(t, err)
		if got < prev {
			t.Fatalf("id slippage not monotone at %v: %d < %d", slip, got, prev)
		}
		prev = got
	}

	_, err = GetIDSlippage(-0.1, 25)
	assert.Error(t, err)
}

func BenchmarkBinIDFromPrice(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = BinIDFromPrice(1.2345, 25)
	}
}
