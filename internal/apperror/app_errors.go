package apperror

import "errors"

// Kind groups errors by how a caller is expected to react to them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation - the move was illegal, the board is presented unchanged.
	KindValidation
	// KindAuthorization - the caller may not act on this session.
	KindAuthorization
	// KindSession - session lifecycle misuse.
	KindSession
)

func (that Kind) String() string {
	switch that {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Error is a classified application error. Values are compared by identity with errors.Is.
type Error struct {
	kind Kind
	msg  string
}

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (that *Error) Error() string {
	return that.msg
}

func (that *Error) Kind() Kind {
	return that.kind
}

var (
	ErrOutOfBounds  = newError(KindValidation, "cell is out of bounds")
	ErrCellOccupied = newError(KindValidation, "cell is already occupied")
	ErrGameOver     = newError(KindValidation, "game is already finished")
	ErrOutOfTurn    = newError(KindValidation, "mark does not match the current turn")

	ErrNotYourTurn  = newError(KindAuthorization, "it's not your turn")
	ErrNotInGame    = newError(KindAuthorization, "you're not in this game")
	ErrNotOwner     = newError(KindAuthorization, "only the owner can do this")
	ErrNotConnected = newError(KindAuthorization, "connect first")

	ErrNotFound      = newError(KindSession, "no active game")
	ErrAlreadyActive = newError(KindSession, "game already exists")
	ErrAlreadyFull   = newError(KindSession, "game already has two players")
	ErrWrongMode     = newError(KindSession, "game is not a two-player game")
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}

	return KindUnknown
}
