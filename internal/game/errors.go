package game

import "errors"

// Domain errors surfaced to the socket layer. Each maps to a stable
// wire code via Code; messages never carry internals.
var (
	ErrWrongPhase     = errors.New("action not allowed in current phase")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrSeatTaken      = errors.New("seat already taken")
	ErrRoomFull       = errors.New("room is full")
)

// Code maps a domain error to its wire code. Unknown errors map to a
// generic internal code so stack detail never leaks.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrWrongPhase):
		return "WrongPhase"
	case errors.Is(err, ErrNotYourTurn):
		return "NotYourTurn"
	case errors.Is(err, ErrIllegalMove):
		return "IllegalMove"
	case errors.Is(err, ErrInvalidBid):
		return "InvalidBid"
	case errors.Is(err, ErrInvalidPayload):
		return "InvalidPayload"
	case errors.Is(err, ErrSeatTaken), errors.Is(err, ErrRoomFull):
		return "InvalidPayload"
	default:
		return "Internal"
	}
}
