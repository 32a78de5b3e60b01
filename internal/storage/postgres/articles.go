package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/newslinker/internal/linker"
)

const insertArticleSQL = `INSERT INTO news_articles (article_title, article_url, article_text, website)
VALUES ($1, $2, $3, $4) RETURNING id`

// InsertArticle stores the article and returns its generated id.
func (e *Engine) InsertArticle(ctx context.Context, record linker.ArticleRecord) (int64, error) {
	var id int64
	err := e.write(ctx, "insert article", func(conn Conn) error {
		return conn.QueryRow(ctx, insertArticleSQL,
			record.Title, record.URL, record.Text, record.Site,
		).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertCatalogEntity creates a catalog row named name and returns its id.
func (e *Engine) InsertCatalogEntity(ctx context.Context, category linker.Category, name string) (int64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("insert catalog entity: unknown category %q", category)
	}
	query, args, err := psql.Insert(category.Table()).
		Columns("name").
		Values(name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("insert catalog entity: build query: %w", err)
	}
	var id int64
	err = e.write(ctx, "insert "+string(category), func(conn Conn) error {
		return conn.QueryRow(ctx, query, args...).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertLink joins an article to a catalog row. Non-positive ids are
// ignored, which keeps dry runs against DebugArticleID from writing.
func (e *Engine) InsertLink(ctx context.Context, category linker.Category, articleID, entityID int64) error {
	if articleID <= 0 || entityID <= 0 {
		return nil
	}
	if !category.Valid() {
		return fmt.Errorf("insert link: unknown category %q", category)
	}
	query, args, err := psql.Insert(category.LinkTable()).
		Columns("article_id", category.LinkColumn()).
		Values(articleID, entityID).
		ToSql()
	if err != nil {
		return fmt.Errorf("insert link: build query: %w", err)
	}
	return e.write(ctx, "insert "+category.LinkTable(), func(conn Conn) error {
		_, execErr := conn.Exec(ctx, query, args...)
		return execErr
	})
}

const articleExistsSQL = `SELECT EXISTS (SELECT 1 FROM news_articles WHERE article_url = $1)`

// ArticleExists reports whether an article with url has been stored.
func (e *Engine) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := e.read(ctx, "article exists", func(conn Conn) error {
		return conn.QueryRow(ctx, articleExistsSQL, url).Scan(&exists)
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}
