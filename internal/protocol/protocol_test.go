package protocol

import (
	"context"
	"errors"
	"testing"

	"YieldOptimizer/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	log := zerolog.Nop()
	r := NewRegistry(NewSimVenue(model.ProtocolSolend, false, log), NewSimVenue(model.ProtocolRaydium, false, log))

	a, err := r.Get(model.ProtocolSolend)
	require.NoError(t, err)
	assert.Equal(t, model.ProtocolSolend, a.ID())

	_, err = r.Get("orca")
	assert.ErrorIs(t, err, model.ErrUnsupportedProtocol)

	_, err = r.Get(model.ProtocolNone)
	assert.ErrorIs(t, err, model.ErrUnsupportedProtocol)

	assert.Equal(t, []model.ProtocolID{model.ProtocolRaydium, model.ProtocolSolend}, r.Protocols())
}

func TestSimVenuePositions(t *testing.T) {
	ctx := context.Background()
	acct := AssetAccount{Owner: "alice", Mint: "USDC"}

	strict := NewSimVenue(model.ProtocolSerum, true, zerolog.Nop())
	require.NoError(t, strict.Deposit(ctx, acct, 100))
	assert.Equal(t, uint64(100), strict.Position(acct))
	assert.Error(t, strict.Withdraw(ctx, acct, 101))
	require.NoError(t, strict.Withdraw(ctx, acct, 100))
	assert.Zero(t, strict.Position(acct))

	loose := NewSimVenue(model.ProtocolSerum, false, zerolog.Nop())
	assert.NoError(t, loose.Withdraw(ctx, acct, 50))
	assert.Zero(t, loose.Position(acct))
}

func TestSimVenueZeroAmount(t *testing.T) {
	v := NewSimVenue(model.ProtocolSolend, true, zerolog.Nop())
	acct := AssetAccount{Owner: "bob", Mint: "SOL"}
	assert.NoError(t, v.Withdraw(context.Background(), acct, 0))
	assert.NoError(t, v.Deposit(context.Background(), acct, 0))
	assert.Zero(t, v.Position(acct))
}

func TestSimVenueHooks(t *testing.T) {
	boom := errors.New("venue down")
	v := NewSimVenue(model.ProtocolSolend, false, zerolog.Nop())
	v.BeforeDeposit = func(context.Context, AssetAccount, uint64) error { return boom }
	acct := AssetAccount{Owner: "bob", Mint: "SOL"}
	assert.ErrorIs(t, v.Deposit(context.Background(), acct, 10), boom)
	assert.Zero(t, v.Position(acct))
}
