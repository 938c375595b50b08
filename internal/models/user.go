package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	GithubLogin   string    `bun:"github_login" json:"github_login"`
	IsDeleted     bool      `bun:"is_deleted" json:"is_deleted"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
