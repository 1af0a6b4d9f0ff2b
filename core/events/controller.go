package events

import (
	"github.com/ethereum/go-ethereum/common"

	"rcavault/core/types"
)

const (
	// TypeShieldCreated is emitted when a shield joins the active registry.
	TypeShieldCreated = "controller.shield_created"
	// TypeShieldCancelled is emitted when a shield leaves the active registry.
	TypeShieldCancelled = "controller.shield_cancelled"
	// TypeParamUpdated is emitted when a global parameter changes.
	TypeParamUpdated = "controller.param_updated"
	// TypeRootUpdated is emitted when a committed controller root rotates.
	TypeRootUpdated = "controller.root_updated"
	// TypeRouterVerified is emitted when the router whitelist changes.
	TypeRouterVerified = "controller.router_verified"
	// TypePaused is emitted when the protocol pause flag flips.
	TypePaused = "controller.paused"
)

// ShieldCreated records a registry addition.
type ShieldCreated struct {
	Shield    common.Address
	UToken    common.Address
	Name      string
	Symbol    string
	Timestamp uint64
}

func (ShieldCreated) EventType() string { return TypeShieldCreated }

func (e ShieldCreated) Event() *types.Event {
	return &types.Event{Type: TypeShieldCreated, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"uToken":    formatAddress(e.UToken),
		"name":      e.Name,
		"symbol":    e.Symbol,
		"timestamp": formatUint(e.Timestamp),
	}}
}

// ShieldCancelled records a registry removal.
type ShieldCancelled struct {
	Shield    common.Address
	Timestamp uint64
}

func (ShieldCancelled) EventType() string { return TypeShieldCancelled }

func (e ShieldCancelled) Event() *types.Event {
	return &types.Event{Type: TypeShieldCancelled, Attributes: map[string]string{
		"shield":    formatAddress(e.Shield),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// ParamUpdated records a governed parameter change.
type ParamUpdated struct {
	Name      string
	Value     string
	Timestamp uint64
}

func (ParamUpdated) EventType() string { return TypeParamUpdated }

func (e ParamUpdated) Event() *types.Event {
	return &types.Event{Type: TypeParamUpdated, Attributes: map[string]string{
		"name":      e.Name,
		"value":     e.Value,
		"timestamp": formatUint(e.Timestamp),
	}}
}

// RootUpdated records a committed root rotation.
type RootUpdated struct {
	Kind      string
	Root      common.Hash
	Timestamp uint64
}

func (RootUpdated) EventType() string { return TypeRootUpdated }

func (e RootUpdated) Event() *types.Event {
	return &types.Event{Type: TypeRootUpdated, Attributes: map[string]string{
		"kind":      e.Kind,
		"root":      e.Root.Hex(),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// RouterVerified records a router whitelist change.
type RouterVerified struct {
	Router   common.Address
	Verified bool
}

func (RouterVerified) EventType() string { return TypeRouterVerified }

func (e RouterVerified) Event() *types.Event {
	verified := "false"
	if e.Verified {
		verified = "true"
	}
	return &types.Event{Type: TypeRouterVerified, Attributes: map[string]string{
		"router":   formatAddress(e.Router),
		"verified": verified,
	}}
}

// Paused records a pause flag change.
type Paused struct {
	Paused bool
	By     common.Address
}

func (Paused) EventType() string { return TypePaused }

func (e Paused) Event() *types.Event {
	paused := "false"
	if e.Paused {
		paused = "true"
	}
	return &types.Event{Type: TypePaused, Attributes: map[string]string{
		"paused": paused,
		"by":     formatAddress(e.By),
	}}
}
