package chain

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// ErrDisabled is returned by every Noop operation.
var ErrDisabled = errors.New("chain gateway is disabled")

// Noop is the gateway used when no blockchain is configured. Engines check
// Enabled() before mirroring, so in practice none of the other methods run.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Enabled() bool { return false }

func (*Noop) NewWallet(context.Context) (domain.Wallet, error) {
	return domain.Wallet{}, ErrDisabled
}

func (*Noop) Deploy(context.Context, uuid.UUID, int64, map[string]string) (string, string, error) {
	return "", "", ErrDisabled
}

func (*Noop) Mint(context.Context, string, string, int64) (string, error) {
	return "", ErrDisabled
}

func (*Noop) Transfer(context.Context, string, string, string, int64) (string, error) {
	return "", ErrDisabled
}

func (*Noop) Burn(context.Context, string, int64) (string, error) {
	return "", ErrDisabled
}

func (*Noop) FundGas(context.Context, string) (string, error) {
	return "", ErrDisabled
}
