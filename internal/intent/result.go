package intent

import "l2-tipbot/internal/amount"

// Preview is what a confirm would execute. It is re-derived on every call
// and never stored.
type Preview struct {
	Title       string
	Primary     *amount.Packed // nil for unlocks
	Fee         amount.Packed
	Instruction string // the literal command that confirms this preview
}

// Outcome is a successfully submitted transaction.
type Outcome struct {
	Title     string
	Primary   *amount.Packed // nil for unlocks
	Fee       amount.Packed
	TxHash    string
	Committed bool
}

// InfoKind selects an informational message.
type InfoKind int

const (
	InfoUnlockInstructions InfoKind = iota + 1
	InfoAlreadyUnlocked
)

// Info is an informational answer that moved no value.
type Info struct {
	Kind InfoKind
}

// Result holds exactly one of Preview, Outcome or Info.
type Result struct {
	Preview *Preview
	Outcome *Outcome
	Info    *Info
}
