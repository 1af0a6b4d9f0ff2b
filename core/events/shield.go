package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/types"
)

const (
	// TypeMint is emitted when underlying is deposited and RCA minted.
	TypeMint = "shield.mint"
	// TypeRedeemRequest is emitted when RCA is burned into a pending withdrawal.
	TypeRedeemRequest = "shield.redeem_request"
	// TypeRedeemFinalize is emitted when a pending withdrawal pays out.
	TypeRedeemFinalize = "shield.redeem_finalize"
	// TypePurchaseRca is emitted when RCA is bought out of the for-sale pool.
	TypePurchaseRca = "shield.purchase_rca"
	// TypePurchaseU is emitted when underlying is bought out of the for-sale pool.
	TypePurchaseU = "shield.purchase_u"
	// TypePurchase is emitted when a harvested reward token is bought.
	TypePurchase = "shield.purchase"
	// TypeRewardHarvested is emitted per token credited by getReward.
	TypeRewardHarvested = "shield.reward_harvested"
)

// Mint records a deposit.
type Mint struct {
	Shield    common.Address
	Sender    common.Address
	To        common.Address
	Referrer  common.Address
	UAmount   *big.Int
	RcaAmount *big.Int
	Timestamp uint64
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"sender":    formatAddress(e.Sender),
		"to":        formatAddress(e.To),
		"referrer":  formatAddress(e.Referrer),
		"uAmount":   formatAmount(e.UAmount),
		"rcaAmount": formatAmount(e.RcaAmount),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// RedeemRequest records a burn into a pending withdrawal.
type RedeemRequest struct {
	Shield    common.Address
	User      common.Address
	RcaAmount *big.Int
	UAmount   *big.Int
	EndTime   uint64
	Timestamp uint64
}

func (RedeemRequest) EventType() string { return TypeRedeemRequest }

func (e RedeemRequest) Event() *types.Event {
	return &types.Event{Type: TypeRedeemRequest, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"user":      formatAddress(e.User),
		"rcaAmount": formatAmount(e.RcaAmount),
		"uAmount":   formatAmount(e.UAmount),
		"endTime":   formatUint(e.EndTime),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// RedeemFinalize records a withdrawal payout.
type RedeemFinalize struct {
	Shield      common.Address
	User        common.Address
	Destination common.Address
	Router      common.Address
	RcaAmount   *big.Int
	UAmount     *big.Int
	Timestamp   uint64
}

func (RedeemFinalize) EventType() string { return TypeRedeemFinalize }

func (e RedeemFinalize) Event() *types.Event {
	attrs := map[string]string{
		"shield":      formatAddress(e.Shield),
		"user":        formatAddress(e.User),
		"destination": formatAddress(e.Destination),
		"rcaAmount":   formatAmount(e.RcaAmount),
		"uAmount":     formatAmount(e.UAmount),
		"timestamp":   formatUint(e.Timestamp),
	}
	if e.Router != (common.Address{}) {
		attrs["router"] = formatAddress(e.Router)
	}
	return &types.Event{Type: TypeRedeemFinalize, Attributes: attrs}
}

// PurchaseRca records RCA bought from the for-sale pool.
type PurchaseRca struct {
	Shield    common.Address
	Buyer     common.Address
	UAmount   *big.Int
	RcaAmount *big.Int
	Price     *big.Int
	Paid      *big.Int
	Timestamp uint64
}

func (PurchaseRca) EventType() string { return TypePurchaseRca }

func (e PurchaseRca) Event() *types.Event {
	return &types.Event{Type: TypePurchaseRca, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"buyer":     formatAddress(e.Buyer),
		"uAmount":   formatAmount(e.UAmount),
		"rcaAmount": formatAmount(e.RcaAmount),
		"price":     formatAmount(e.Price),
		"paid":      formatAmount(e.Paid),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// PurchaseU records underlying bought from the for-sale pool.
type PurchaseU struct {
	Shield    common.Address
	Buyer     common.Address
	UAmount   *big.Int
	Price     *big.Int
	Paid      *big.Int
	Timestamp uint64
}

func (PurchaseU) EventType() string { return TypePurchaseU }

func (e PurchaseU) Event() *types.Event {
	return &types.Event{Type: TypePurchaseU, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"buyer":     formatAddress(e.Buyer),
		"uAmount":   formatAmount(e.UAmount),
		"price":     formatAmount(e.Price),
		"paid":      formatAmount(e.Paid),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// Purchase records a harvested reward token sold at a discount.
type Purchase struct {
	Shield    common.Address
	Buyer     common.Address
	Token     common.Address
	Amount    *big.Int
	Paid      *big.Int
	Timestamp uint64
}

func (Purchase) EventType() string { return TypePurchase }

func (e Purchase) Event() *types.Event {
	return &types.Event{Type: TypePurchase, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"buyer":     formatAddress(e.Buyer),
		"token":     formatAddress(e.Token),
		"amount":    formatAmount(e.Amount),
		"paid":      formatAmount(e.Paid),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// RewardHarvested records a reward token credited to a shield's sellable
// inventory.
type RewardHarvested struct {
	Shield common.Address
	Token  common.Address
	Amount *big.Int
}

func (RewardHarvested) EventType() string { return TypeRewardHarvested }

func (e RewardHarvested) Event() *types.Event {
	return &types.Event{Type: TypeRewardHarvested, Attributes: map[string]string{
		"shield": formatAddress(e.Shield),
		"token":  formatAddress(e.Token),
		"amount": formatAmount(e.Amount),
	}}
}
