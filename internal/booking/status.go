package booking

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
)

// Transition table: declined & cancelled terminal, tidak ada jalan keluar.
// Approve TIDAK melepas slot — reservation approved tetap blokir interval.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusDeclined: true, StatusCancelled: true},
	StatusApproved:  {StatusCancelled: true},
	StatusDeclined:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ValidStatus: hanya status yang dikenal state machine.
func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

// Active = masih menempati slot untuk overlap check.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

func (s Status) Terminal() bool {
	return ValidStatus(s) && len(validNext[s]) == 0
}
