package user

import "time"

// User is the owner of statements and ledger entries. Identity is the
// opaque ID; everything but the display name is immutable after creation.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateUserParams carries registration input. PasswordHash is already
// bcrypt-hashed; repositories never see plaintext.
type CreateUserParams struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
}
