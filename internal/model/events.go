package model

// EventType names an audit event.
type EventType string

const (
	EventFundsInitialized   EventType = "funds_initialized"
	EventYieldRateObserved  EventType = "yield_rate_observed"
	EventFundsWithdrawn     EventType = "funds_withdrawn"
	EventFundsDeposited     EventType = "funds_deposited"
	EventFundsReallocated   EventType = "funds_reallocated"
	EventReallocationFailed EventType = "reallocation_failed"
	EventBalanceChanged     EventType = "balance_changed"
	EventFeeRateUpdated     EventType = "fee_rate_updated"
)

// Event is implemented by every audit event payload.
type Event interface {
	EventType() EventType
	// EventOwner returns the ledger owner the event concerns, or "" for
	// process-wide events.
	EventOwner() string
}

// FundsInitializedData is emitted when a ledger and its guard are created.
type FundsInitializedData struct {
	Owner     string `json:"owner"`
	Timestamp int64  `json:"timestamp"`
}

func (d *FundsInitializedData) EventType() EventType { return EventFundsInitialized }
func (d *FundsInitializedData) EventOwner() string   { return d.Owner }

// YieldRateObservedData is emitted for every rate read, including attempts
// that end without a reallocation.
type YieldRateObservedData struct {
	Owner    string     `json:"owner"`
	Protocol ProtocolID `json:"protocol"`
	Rate     uint64     `json:"rate"`
}

func (d *YieldRateObservedData) EventType() EventType { return EventYieldRateObserved }
func (d *YieldRateObservedData) EventOwner() string   { return d.Owner }

// FundsWithdrawnData is emitted once the source venue released the funds.
type FundsWithdrawnData struct {
	Owner    string     `json:"owner"`
	Protocol ProtocolID `json:"protocol"`
	Amount   uint64     `json:"amount"`
}

func (d *FundsWithdrawnData) EventType() EventType { return EventFundsWithdrawn }
func (d *FundsWithdrawnData) EventOwner() string   { return d.Owner }

// FundsDepositedData is emitted once the destination venue accepted the funds.
type FundsDepositedData struct {
	Owner    string     `json:"owner"`
	Protocol ProtocolID `json:"protocol"`
	Amount   uint64     `json:"amount"`
}

func (d *FundsDepositedData) EventType() EventType { return EventFundsDeposited }
func (d *FundsDepositedData) EventOwner() string   { return d.Owner }

// FundsReallocatedData summarizes a completed move. Amount is net of fees.
type FundsReallocatedData struct {
	Owner        string     `json:"owner"`
	FromProtocol ProtocolID `json:"from_protocol"`
	ToProtocol   ProtocolID `json:"to_protocol"`
	Amount       uint64     `json:"amount"`
	Timestamp    int64      `json:"timestamp"`
}

func (d *FundsReallocatedData) EventType() EventType { return EventFundsReallocated }
func (d *FundsReallocatedData) EventOwner() string   { return d.Owner }

// Failure stages reported by ReallocationFailedData.
const (
	StageWithdraw = "withdraw"
	StageDeposit  = "deposit"
)

// ReallocationFailedData is emitted when an adapter call fails. A deposit
// stage failure means funds left FromProtocol and never reached ToProtocol.
type ReallocationFailedData struct {
	Owner        string     `json:"owner"`
	Stage        string     `json:"stage"`
	FromProtocol ProtocolID `json:"from_protocol"`
	ToProtocol   ProtocolID `json:"to_protocol"`
	AssetMint    string     `json:"asset_mint"`
	Amount       uint64     `json:"amount"`
	Error        string     `json:"error"`
	Timestamp    int64      `json:"timestamp"`
}

func (d *ReallocationFailedData) EventType() EventType { return EventReallocationFailed }
func (d *ReallocationFailedData) EventOwner() string   { return d.Owner }

// Stranded reports whether funds are out of every venue.
func (d *ReallocationFailedData) Stranded() bool { return d.Stage == StageDeposit }

// Balance change directions.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// BalanceChangedData records a custody credit or debit.
type BalanceChangedData struct {
	Owner     string `json:"owner"`
	AssetMint string `json:"asset_mint"`
	Direction string `json:"direction"`
	Amount    uint64 `json:"amount"`
	Balance   uint64 `json:"balance"`
}

func (d *BalanceChangedData) EventType() EventType { return EventBalanceChanged }
func (d *BalanceChangedData) EventOwner() string   { return d.Owner }

// FeeRateUpdatedData is emitted by the governance authority.
type FeeRateUpdatedData struct {
	Authority string `json:"authority"`
	OldRate   uint64 `json:"old_rate"`
	NewRate   uint64 `json:"new_rate"`
}

func (d *FeeRateUpdatedData) EventType() EventType { return EventFeeRateUpdated }
func (d *FeeRateUpdatedData) EventOwner() string   { return "" }
