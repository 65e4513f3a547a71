// internal/model/article.go
package model

// Article is the slice of the externally-owned articles table that
// auto-article campaigns need.
type Article struct {
	ID      int    `db:"id" json:"id"`
	Title   string `db:"title" json:"title"`
	Content string `db:"content" json:"content"`
}
