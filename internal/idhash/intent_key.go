package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"l2-tipbot/internal/domain"
)

// ComputeIntentKey computes a deterministic key for a confirmable intent.
// Formula: SHA256(actor_id|kind|ticker|amount|target_id)
// Re-issuing the same command yields the same key.
func ComputeIntentKey(
	actorID string,
	kind domain.ExecutionKind,
	ticker string,
	amount string,
	targetID string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		actorID,
		string(kind),
		ticker,
		amount,
		targetID,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRecordID computes the execution record id.
// Formula: SHA256(intent_key|attempt_id|tx_hash|executed_at)
// attemptID is unique per execution, so failed attempts without a tx hash
// never share an id.
func ComputeRecordID(intentKey, attemptID, txHash string, executedAt int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", intentKey, attemptID, txHash, executedAt)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ExecutionLockKey returns the lock name serialising executions of one actor.
func ExecutionLockKey(actorID string) string {
	return "tipbot:exec:" + actorID
}
