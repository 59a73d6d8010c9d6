package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TransferPurpose string

const (
	TransferPurposeBattleCreate TransferPurpose = "battle_create"
	TransferPurposeBattleAccept TransferPurpose = "battle_accept"
	TransferPurposeRaidJoin     TransferPurpose = "raid_join"
	TransferPurposeFeed         TransferPurpose = "feed"
)

// TokenTransfer reserves an on-chain transaction signature. The signature is
// the primary key: a signature settles at most one operation, ever.
type TokenTransfer struct {
	bun.BaseModel `bun:"table:token_transfer"`
	Signature     string          `bun:"signature,pk" json:"signature"`
	UserID        int64           `bun:"user_id" json:"user_id"`
	Amount        int64           `bun:"amount" json:"amount"`
	Purpose       TransferPurpose `bun:"purpose" json:"purpose"`
	CreatedAt     time.Time       `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// VerifiedTransfer is the token-verifier oracle answer.
type VerifiedTransfer struct {
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
	Amount    int64  `json:"amount"`
	Valid     bool   `json:"valid"`
}
