package types

import "math/big"

// WithdrawRequest is a user's pending redemption on a shield. RCA is burned
// when the request is made; UAmount is paid once EndTime has passed.
type WithdrawRequest struct {
	RcaAmount *big.Int `json:"rcaAmount"`
	UAmount   *big.Int `json:"uAmount"`
	EndTime   uint64   `json:"endTime"`
}

// Pending reports whether the request holds anything to finalize.
func (r *WithdrawRequest) Pending() bool {
	return r != nil && r.UAmount != nil && (r.UAmount.Sign() > 0 || (r.RcaAmount != nil && r.RcaAmount.Sign() > 0))
}

// Copy returns a deep copy with nil amounts replaced by zero.
func (r *WithdrawRequest) Copy() *WithdrawRequest {
	out := &WithdrawRequest{RcaAmount: new(big.Int), UAmount: new(big.Int)}
	if r == nil {
		return out
	}
	if r.RcaAmount != nil {
		out.RcaAmount.Set(r.RcaAmount)
	}
	if r.UAmount != nil {
		out.UAmount.Set(r.UAmount)
	}
	out.EndTime = r.EndTime
	return out
}
