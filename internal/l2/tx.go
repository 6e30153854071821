package l2

import "fmt"

// Transfer moves tokens between two accounts.
type Transfer struct {
	Type      string `json:"type"`
	AccountID uint32 `json:"accountId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Token     string `json:"token"`
	Amount    string `json:"amount"` // base units
	FeeToken  string `json:"feeToken"`
	Fee       string `json:"fee"` // base units
	Nonce     uint32 `json:"nonce"`
}

// NewTransfer builds a transfer transaction.
func NewTransfer(accountID uint32, from, to, token, amount, feeToken, fee string, nonce uint32) *Transfer {
	return &Transfer{
		Type:      "Transfer",
		AccountID: accountID,
		From:      from,
		To:        to,
		Token:     token,
		Amount:    amount,
		FeeToken:  feeToken,
		Fee:       fee,
		Nonce:     nonce,
	}
}

// Message returns the text the account owner signs.
func (t *Transfer) Message() []byte {
	return []byte(fmt.Sprintf("Transfer %s %s\nTo: %s\nNonce: %d\nFee: %s %s\nAccount Id: %d",
		t.Amount, t.Token, t.To, t.Nonce, t.Fee, t.FeeToken, t.AccountID))
}

// ChangePubKey registers the account's L2 signing key (unlock).
type ChangePubKey struct {
	Type      string `json:"type"`
	AccountID uint32 `json:"accountId"`
	Account   string `json:"account"`
	NewPkHash string `json:"newPkHash"`
	FeeToken  string `json:"feeToken"`
	Fee       string `json:"fee"` // base units
	Nonce     uint32 `json:"nonce"`
}

// NewChangePubKey builds an unlock transaction.
func NewChangePubKey(accountID uint32, account, pkHash, feeToken, fee string, nonce uint32) *ChangePubKey {
	return &ChangePubKey{
		Type:      "ChangePubKey",
		AccountID: accountID,
		Account:   account,
		NewPkHash: pkHash,
		FeeToken:  feeToken,
		Fee:       fee,
		Nonce:     nonce,
	}
}

// Message returns the text the account owner signs.
func (c *ChangePubKey) Message() []byte {
	return []byte(fmt.Sprintf("Register L2 key: %s\nNonce: %d\nFee: %s %s\nAccount Id: %d",
		c.NewPkHash, c.Nonce, c.Fee, c.FeeToken, c.AccountID))
}
