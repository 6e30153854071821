package domain

// UserKey is the custodial signing key of a chat user.
// Corresponds to the user_keys table in PostgreSQL.
type UserKey struct {
	UserID       string // chat platform user id, PK
	Address      string // hex L2 address derived from the key
	EncryptedKey []byte // sealed private key (see keys.Vault)
	CreatedAt    int64  // record creation timestamp (ms)
}
