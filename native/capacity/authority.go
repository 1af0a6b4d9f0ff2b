package capacity

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "rcavault/native/common"
)

var (
	errNilState = errors.New("capacity authority: state not configured")
	noncePrefix = []byte("capacity/nonce/")
)

type authorityState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Authority checks capacity claims against the oracle and tracks nonces.
type Authority struct {
	state  authorityState
	domain Domain
	nowFn  func() int64
}

// NewAuthority returns an authority for domain using wall-clock time.
func NewAuthority(domain Domain) *Authority {
	return &Authority{domain: domain, nowFn: func() int64 { return time.Now().Unix() }}
}

// SetState configures the nonce store.
func (a *Authority) SetState(state authorityState) { a.state = state }

// SetNowFunc overrides the clock used for expiry checks.
func (a *Authority) SetNowFunc(now func() int64) {
	if now == nil {
		a.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	a.nowFn = now
}

// Domain returns the signing domain.
func (a *Authority) Domain() Domain { return a.domain }

func nonceKey(user common.Address) []byte {
	return append(append([]byte(nil), noncePrefix...), user.Bytes()...)
}

// Nonce returns the next nonce a claim for user must carry.
func (a *Authority) Nonce(user common.Address) (uint64, error) {
	if a == nil || a.state == nil {
		return 0, errNilState
	}
	var nonce uint64
	if _, err := a.state.KVGet(nonceKey(user), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// Verify checks a claim for (user, shield, amount, expiry) signed by oracle
// and consumes the user's nonce. Nothing is written when verification fails.
func (a *Authority) Verify(oracle, user, shield common.Address, amount *big.Int, expiry uint64, sig Signature) error {
	if a == nil || a.state == nil {
		return errNilState
	}
	now := a.nowFn()
	if now < 0 || uint64(now) > expiry {
		return &nativecommon.CapacityError{Reason: "capacity claim expired"}
	}
	if amount == nil || amount.Sign() < 0 {
		return &nativecommon.CapacityError{Reason: "invalid capacity amount"}
	}
	nonce, err := a.Nonce(user)
	if err != nil {
		return err
	}
	claim := Claim{User: user, Shield: shield, Amount: amount, Nonce: nonce, Expiry: expiry}
	signer, err := Recover(a.domain, claim, sig)
	if err != nil {
		return err
	}
	if oracle == (common.Address{}) || signer != oracle {
		return &nativecommon.SignatureError{Reason: "claim not signed by capacity oracle"}
	}
	return a.state.KVPut(nonceKey(user), nonce+1)
}
