package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/newslinker/internal/linker"
)

const (
	subscriptionsSQL   = `SELECT url, classname FROM subscriptions ORDER BY url`
	problemEntitiesSQL = `SELECT entity_name, entity_spacy_label FROM problem_entities`
)

// Subscriptions lists the configured feeds.
func (e *Engine) Subscriptions(ctx context.Context) ([]linker.Subscription, error) {
	var subs []linker.Subscription
	err := e.read(ctx, "list subscriptions", func(conn Conn) error {
		rows, err := conn.Query(ctx, subscriptionsSQL)
		if err != nil {
			return err
		}
		subs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (linker.Subscription, error) {
			var s linker.Subscription
			err := row.Scan(&s.URL, &s.Site)
			return s, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ProblemEntities lists names the NLP model is known to miss.
func (e *Engine) ProblemEntities(ctx context.Context) ([]linker.ProblemEntity, error) {
	var out []linker.ProblemEntity
	err := e.read(ctx, "list problem entities", func(conn Conn) error {
		rows, err := conn.Query(ctx, problemEntitiesSQL)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (linker.ProblemEntity, error) {
			var p linker.ProblemEntity
			err := row.Scan(&p.Name, &p.Label)
			return p, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
