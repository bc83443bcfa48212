// Package fee computes the platform fee taken from a reallocated amount.
package fee

import (
	"fmt"

	"YieldOptimizer/internal/model"

	"github.com/holiman/uint256"
)

var bpsDenominator = uint256.NewInt(model.MaxFeeRateBps)

// Fee returns floor(gross * rateBps / 10000). The product is formed in 256
// bits so it cannot wrap; a rate above 10000 bps yields ErrFeeOverflow
// because the fee would exceed gross.
func Fee(gross, rateBps uint64) (uint64, error) {
	if rateBps > model.MaxFeeRateBps {
		return 0, fmt.Errorf("%w: rate %d bps", model.ErrFeeOverflow, rateBps)
	}
	product := new(uint256.Int).Mul(uint256.NewInt(gross), uint256.NewInt(rateBps))
	fee := product.Div(product, bpsDenominator)
	if !fee.IsUint64() || fee.Uint64() > gross {
		return 0, fmt.Errorf("%w: gross %d rate %d bps", model.ErrFeeOverflow, gross, rateBps)
	}
	return fee.Uint64(), nil
}

// Split divides gross into the platform fee and the amount that reaches the
// new protocol. fee + net == gross always holds.
func Split(gross, rateBps uint64) (fee, net uint64, err error) {
	fee, err = Fee(gross, rateBps)
	if err != nil {
		return 0, 0, err
	}
	return fee, gross - fee, nil
}

// NetAmount returns gross minus Fee(gross, rateBps).
func NetAmount(gross, rateBps uint64) (uint64, error) {
	_, net, err := Split(gross, rateBps)
	return net, err
}
