package domain

// ExecutionKind distinguishes executed intents.
type ExecutionKind string

const (
	ExecutionTransfer ExecutionKind = "TRANSFER"
	ExecutionUnlock   ExecutionKind = "UNLOCK"
)

// ExecutionStatus is the final status of an executed intent.
type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionFailed    ExecutionStatus = "FAILED"
)

// ExecutionRecord is one confirmed intent that reached the network.
// Corresponds to the executions table in ClickHouse.
type ExecutionRecord struct {
	RecordID   string          // deterministic hash (see idhash)
	IntentKey  string          // hash of actor, kind, ticker, amount and target
	Kind       ExecutionKind   // TRANSFER | UNLOCK
	Status     ExecutionStatus // SUCCEEDED | FAILED
	ActorID    string          // initiating user
	TargetID   string          // receiving user (empty for unlock)
	Ticker     string          // primary ticker
	Amount     string          // packed primary amount, decimal text ("" for unlock)
	FeeTicker  string          // fee ticker
	Fee        string          // packed fee, decimal text
	TxHash     string          // network hash (empty when broadcast failed)
	FailReason string          // error text for FAILED records
	ExecutedAt int64           // execution timestamp (ms)
}
