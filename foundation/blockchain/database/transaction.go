package database

import (
	"encoding/json"
	"errors"
	"time"
)

// Kind discriminates the two transaction variants this ledger supports.
// The original Python source modeled Register/Transfer as a small class
// hierarchy under a common Transaction base; that's collapsed here into
// one tagged struct so the serializer can pick fields by Kind instead of
// replicating the inheritance shape.
type Kind string

// The two transaction kinds. No other kind exists.
const (
	KindRegister Kind = "Register"
	KindTransfer Kind = "Transfer"
)

// TimeLayout is the timestamp format used on the wire: year-month-day
// hour:minute:second with microseconds, so timestamps stay human-readable
// and sort lexicographically in time order.
const TimeLayout = "2006-01-02 15:04:05.000000"

// ErrUnknownKind is returned when decoding a transaction whose
// transaction_type field is neither Register nor Transfer.
var ErrUnknownKind = errors.New("database: unknown transaction kind")

// Transaction is a tagged record registering or transferring ownership of
// a song. UserName is the owner for Register, and the current owner
// initiating the transfer for Transfer. OtherUser is only meaningful
// when Kind is KindTransfer.
type Transaction struct {
	Kind      Kind   `json:"transaction_type"`
	UserName  string `json:"user_name"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	SongName  string `json:"song_name"`
	SongHash  string `json:"song_hash"`
	OtherUser string `json:"other_user,omitempty"`
}

// NewRegister constructs a Register transaction. songHash is expected to
// already be the SHA-256 digest of the song's bytes (or the
// hashutil.FileNotFound sentinel) — composing it is the caller's
// responsibility since the audio storage collaborator is out of scope
// here.
func NewRegister(userName, songName, songHash, signature string) Transaction {
	return Transaction{
		Kind:      KindRegister,
		UserName:  userName,
		Timestamp: time.Now().Format(TimeLayout),
		Signature: signature,
		SongName:  songName,
		SongHash:  songHash,
	}
}

// NewTransfer constructs a Transfer transaction. owner is the current
// owner initiating the transfer and recipient is the new owner.
func NewTransfer(owner, songName, songHash, recipient, signature string) Transaction {
	return Transaction{
		Kind:      KindTransfer,
		UserName:  owner,
		Timestamp: time.Now().Format(TimeLayout),
		Signature: signature,
		SongName:  songName,
		SongHash:  songHash,
		OtherUser: recipient,
	}
}

// Serialize renders the transaction as the JSON string embedded as a
// Block's data field.
func (t Transaction) Serialize() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseTransaction decodes a transaction previously produced by Serialize,
// rejecting any transaction_type other than Register or Transfer.
func ParseTransaction(data string) (Transaction, error) {
	var t Transaction
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return Transaction{}, err
	}
	if t.Kind != KindRegister && t.Kind != KindTransfer {
		return Transaction{}, ErrUnknownKind
	}
	return t, nil
}
