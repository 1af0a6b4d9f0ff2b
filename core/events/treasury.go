package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/types"
)

const (
	// TypeRoot is emitted when an incident's claims root is published.
	TypeRoot = "treasury.root"
	// TypeClaim is emitted when an incident claim pays out.
	TypeClaim = "treasury.claim"
	// TypePendingOwnershipTransfer is emitted when a governor nominates a
	// successor.
	TypePendingOwnershipTransfer = "governable.pending_ownership_transfer"
	// TypeOwnershipTransferred is emitted when the successor accepts.
	TypeOwnershipTransferred = "governable.ownership_transferred"
)

// Root records a claims root publication.
type Root struct {
	IncidentID uint64
	Root       common.Hash
}

func (Root) EventType() string { return TypeRoot }

func (e Root) Event() *types.Event {
	return &types.Event{Type: TypeRoot, Attributes: map[string]string{
		"incidentId": formatUint(e.IncidentID),
		"root":       e.Root.Hex(),
	}}
}

// Claim records an incident payout.
type Claim struct {
	User       common.Address
	IncidentID uint64
	Amount     *big.Int
}

func (Claim) EventType() string { return TypeClaim }

func (e Claim) Event() *types.Event {
	return &types.Event{Type: TypeClaim, Attributes: map[string]string{
		"user":       formatAddress(e.User),
		"incidentId": formatUint(e.IncidentID),
		"amount":     formatAmount(e.Amount),
	}}
}

// PendingOwnershipTransfer records a nominated successor.
type PendingOwnershipTransfer struct {
	Contract common.Address
	From     common.Address
	To       common.Address
}

func (PendingOwnershipTransfer) EventType() string { return TypePendingOwnershipTransfer }

func (e PendingOwnershipTransfer) Event() *types.Event {
	return &types.Event{Type: TypePendingOwnershipTransfer, Attributes: map[string]string{
		"contract": formatAddress(e.Contract),
		"from":     formatAddress(e.From),
		"to":       formatAddress(e.To),
	}}
}

// OwnershipTransferred records a completed governor handoff.
type OwnershipTransferred struct {
	Contract common.Address
	From     common.Address
	To       common.Address
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipTransferred, Attributes: map[string]string{
		"contract": formatAddress(e.Contract),
		"from":     formatAddress(e.From),
		"to":       formatAddress(e.To),
	}}
}
