package domain

import "errors"

// ErrorKind clasifica los errores del core. Cada condición visible para el
// usuario pertenece exactamente a un kind.
type ErrorKind int

const (
	KindInvalidState ErrorKind = iota + 1
	KindExpired
	KindUnauthorized
	KindAlreadyDone
	KindInsufficientFunds
	KindNotFound
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidState:
		return "INVALID_STATE"
	case KindExpired:
		return "EXPIRED"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindAlreadyDone:
		return "ALREADY_DONE"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		return "UNKNOWN"
	}
}

// Error is a named, classified failure. Two Errors match under errors.Is when
// their codes are equal, so callers can attach context with WithMsg and still
// compare against the sentinels below.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return e.Code + ": " + e.Msg
}

// Is matches by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMsg returns a copy of e carrying a more specific message.
func (e *Error) WithMsg(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Msg: msg}
}

func newErr(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrInvalidState        = newErr(KindInvalidState, "INVALID_STATE", "operation not allowed in current state")
	ErrNotWinner           = newErr(KindInvalidState, "NOT_WINNER", "caller has nothing to claim on this outcome")
	ErrNoEligibleJudge     = newErr(KindInvalidState, "NO_ELIGIBLE_JUDGE", "no eligible judge available")
	ErrWithdrawalPending   = newErr(KindInvalidState, "WITHDRAWAL_PENDING", "judge has a pending withdrawal")
	ErrOpenCases           = newErr(KindInvalidState, "OPEN_CASES", "judge still holds undecided cases")
	ErrNoPoolAvailable     = newErr(KindInvalidState, "NO_POOL_AVAILABLE", "no liquidity pool can match this bet")
	ErrRiskTooHigh         = newErr(KindInvalidState, "RISK_TOO_HIGH", "house bet rejected by risk screening")
	ErrJudgeNotStale       = newErr(KindInvalidState, "JUDGE_NOT_STALE", "assigned judge is still within the verdict timeout")
	ErrBetExpired          = newErr(KindExpired, "BET_EXPIRED", "bet has expired")
	ErrNotExpired          = newErr(KindExpired, "NOT_EXPIRED", "bet has not expired yet")
	ErrDisputeWindowClosed = newErr(KindExpired, "DISPUTE_WINDOW_CLOSED", "dispute window has closed")
	ErrDisputeWindowOpen   = newErr(KindExpired, "DISPUTE_WINDOW_OPEN", "dispute window is still open")
	ErrWithdrawalLocked    = newErr(KindExpired, "WITHDRAWAL_LOCKED", "withdrawal lock period has not elapsed")
	ErrUnauthorized        = newErr(KindUnauthorized, "UNAUTHORIZED", "caller is not allowed to perform this operation")
	ErrNotParty            = newErr(KindUnauthorized, "NOT_PARTY", "caller is not a party of this bet")
	ErrNotAssignedJudge    = newErr(KindUnauthorized, "NOT_ASSIGNED_JUDGE", "caller is not the judge assigned to this dispute")
	ErrAlreadyFunded       = newErr(KindAlreadyDone, "ALREADY_FUNDED", "side already funded")
	ErrAlreadyClaimed      = newErr(KindAlreadyDone, "ALREADY_CLAIMED", "winnings already claimed")
	ErrAlreadyRegistered   = newErr(KindAlreadyDone, "ALREADY_REGISTERED", "judge already registered")
	ErrAlreadyDeclared     = newErr(KindAlreadyDone, "ALREADY_DECLARED", "conflict already declared")
	ErrNothingToRefund     = newErr(KindAlreadyDone, "NOTHING_TO_REFUND", "side has no deposit to refund")
	ErrInsufficientStake   = newErr(KindInsufficientFunds, "INSUFFICIENT_STAKE", "stake below configured minimum")
	ErrBetNotFound         = newErr(KindNotFound, "BET_NOT_FOUND", "bet not found")
	ErrJudgeNotFound       = newErr(KindNotFound, "JUDGE_NOT_FOUND", "judge not found")
	ErrDisputeNotFound     = newErr(KindNotFound, "DISPUTE_NOT_FOUND", "dispute not found")
	ErrInvalidAmount       = newErr(KindInvalidArgument, "INVALID_AMOUNT", "amount must be positive")
	ErrInvalidTerms        = newErr(KindInvalidArgument, "INVALID_TERMS", "bet terms are invalid")
	ErrInvalidOutcome      = newErr(KindInvalidArgument, "INVALID_OUTCOME", "outcome must be CREATOR_WINS, OPPONENT_WINS or DRAW")
)

// KindOf returns the kind of the first *Error in err's chain, or 0 when err
// is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
