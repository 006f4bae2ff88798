package domain

import "github.com/uptrace/bun"

type Contact struct {
	bun.BaseModel `bun:"table:contacts"`

	ID    int64  `bun:"contact_id,pk,autoincrement"`
	Name  string `bun:"contact_name,notnull"`
	Email string `bun:"email,notnull"`
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID   int64  `bun:"user_id,pk,autoincrement"`
	Name string `bun:"user_name,notnull,unique"`
	// PasswordHash is a bcrypt hash; plaintext is never stored.
	PasswordHash string `bun:"password,notnull"`
}
