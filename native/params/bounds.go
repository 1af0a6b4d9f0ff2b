package params

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// BpsDenominator is the basis point denominator used by every rate.
	BpsDenominator uint64 = 10_000
	// SecondsPerYear is the decay year length (365 days).
	SecondsPerYear uint64 = 365 * 24 * 60 * 60
	// MaxApr caps the annual decay rate at 20%.
	MaxApr uint64 = 2_000
	// MaxDiscount caps the purchase discount at 25%.
	MaxDiscount uint64 = 2_500
	// MaxPercentReserved caps the reserved buffer at 33%.
	MaxPercentReserved uint64 = 3_300
	// MaxWithdrawalDelay caps the redemption delay at seven days.
	MaxWithdrawalDelay uint64 = 7 * 24 * 60 * 60
)

// Global captures the controller-wide risk parameters that shields copy on
// every state sync.
type Global struct {
	Apr             uint64         `json:"apr"`
	Discount        uint64         `json:"discount"`
	WithdrawalDelay uint64         `json:"withdrawalDelay"`
	Treasury        common.Address `json:"treasury"`
}

// Updates records the timestamp each global parameter last changed.
type Updates struct {
	Apr             uint64 `json:"aprUpdate"`
	Discount        uint64 `json:"discountUpdate"`
	WithdrawalDelay uint64 `json:"withdrawalDelayUpdate"`
	Treasury        uint64 `json:"treasuryUpdate"`
	Liq             uint64 `json:"liqUpdate"`
	Reserved        uint64 `json:"reservedUpdate"`
}

// Latest returns the most recent parameter timestamp. Shields compare it to
// their own lastUpdate to decide whether a parameter resync is due.
func (u Updates) Latest() uint64 {
	latest := u.Apr
	for _, ts := range []uint64{u.Discount, u.WithdrawalDelay, u.Treasury} {
		if ts > latest {
			latest = ts
		}
	}
	return latest
}

// ValidateApr enforces the apr ceiling.
func ValidateApr(apr uint64) error {
	if apr > MaxApr {
		return fmt.Errorf("apr %d exceeds maximum %d", apr, MaxApr)
	}
	return nil
}

// ValidateDiscount enforces the discount ceiling.
func ValidateDiscount(discount uint64) error {
	if discount > MaxDiscount {
		return fmt.Errorf("discount %d exceeds maximum %d", discount, MaxDiscount)
	}
	return nil
}

// ValidateWithdrawalDelay enforces the withdrawal delay ceiling.
func ValidateWithdrawalDelay(delay uint64) error {
	if delay > MaxWithdrawalDelay {
		return fmt.Errorf("withdrawal delay %d exceeds maximum %d", delay, MaxWithdrawalDelay)
	}
	return nil
}

// Validate checks every bound in one pass.
func (g Global) Validate() error {
	if err := ValidateApr(g.Apr); err != nil {
		return err
	}
	if err := ValidateDiscount(g.Discount); err != nil {
		return err
	}
	if err := ValidateWithdrawalDelay(g.WithdrawalDelay); err != nil {
		return err
	}
	if g.Treasury == (common.Address{}) {
		return fmt.Errorf("treasury address required")
	}
	return nil
}

// ClampPercentReserved limits an attested reserved percentage to the cap.
func ClampPercentReserved(pct uint64) uint64 {
	if pct > MaxPercentReserved {
		return MaxPercentReserved
	}
	return pct
}
