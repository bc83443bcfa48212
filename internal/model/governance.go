package model

// MaxFeeRateBps is 100% expressed in basis points.
const MaxFeeRateBps = 10000

// GovernanceRecord holds the platform fee and the identity allowed to change it.
type GovernanceRecord struct {
	Authority string `msgpack:"authority" json:"authority"`
	FeeRate   uint64 `msgpack:"fee_rate" json:"fee_rate"`
}
