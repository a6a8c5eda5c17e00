package models

import "github.com/google/uuid"

// User is the verified identity a connection acts as. It comes from the
// external auth service's token; accounts themselves live elsewhere.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}
