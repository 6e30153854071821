package domain

// CommandKind identifies a chat command.
type CommandKind string

const (
	CommandHelp    CommandKind = "help"
	CommandBalance CommandKind = "balance"
	CommandSend    CommandKind = "send"
	CommandUnlock  CommandKind = "unlock"
	CommandTokens  CommandKind = "tokens"
)

// CommandRequest is a parsed, not yet validated command.
// Empty strings mean the option was not supplied.
type CommandRequest struct {
	Kind       CommandKind
	ActorID    string
	Ticker     string // upper-cased
	AmountText string // literal amount text as typed
	TargetID   string // user id without mention decoration
	Confirmed  bool
}
