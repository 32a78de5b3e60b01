package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JakeFAU/newslinker/internal/linker"
)

const (
	countriesTable = "countries"
	locationCols   = "id, name, population, cc2"
)

// matchPredicate returns the WHERE clause for the single-table stages.
// Alias similarity needs a join and is built by stageQuery.
func matchPredicate(stage linker.MatchStage, name string, threshold float64) (sq.Sqlizer, error) {
	switch stage {
	case linker.StageName:
		return sq.Eq{"name": name}, nil
	case linker.StageAlias:
		return sq.Expr("aliases @> ARRAY[?]::text[]", name), nil
	case linker.StageSimilarName:
		return sq.Expr("similarity(name, ?) > ?", name, threshold), nil
	default:
		return nil, fmt.Errorf("unsupported match stage %s", stage)
	}
}

// stageQuery builds the SELECT for one stage over table returning cols.
func stageQuery(table string, cols []string, stage linker.MatchStage, name string, threshold float64) (sq.SelectBuilder, error) {
	if stage == linker.StageSimilarAlias {
		qualified := make([]string, len(cols))
		for i, c := range cols {
			qualified[i] = table + "." + c
		}
		return psql.Select(qualified...).
			Distinct().
			From(table).
			JoinClause(fmt.Sprintf("CROSS JOIN LATERAL unnest(%s.aliases) AS alias_name", table)).
			Where("similarity(alias_name, ?) > ?", name, threshold), nil
	}
	pred, err := matchPredicate(stage, name, threshold)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	return psql.Select(cols...).From(table).Where(pred), nil
}

// Match returns the ids of category rows matching name at stage.
func (e *Engine) Match(ctx context.Context, stage linker.MatchStage, category linker.Category, name string, threshold float64) ([]int64, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("match: unknown category %q", category)
	}
	b, err := stageQuery(category.Table(), []string{"id"}, stage, name, threshold)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", category, err)
	}
	return e.queryIDs(ctx, fmt.Sprintf("match %s by %s", category, stage), b)
}

// MatchAdminArea returns the reference admin areas matching name at stage.
func (e *Engine) MatchAdminArea(ctx context.Context, stage linker.MatchStage, name string, threshold float64) ([]linker.AdminArea, error) {
	b, err := stageQuery(countriesTable, []string{"name", "cc2"}, stage, name, threshold)
	if err != nil {
		return nil, fmt.Errorf("match admin area: %w", err)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("match admin area: build query: %w", err)
	}
	var areas []linker.AdminArea
	err = e.read(ctx, "match admin area by "+stage.String(), func(conn Conn) error {
		rows, qErr := conn.Query(ctx, query, args...)
		if qErr != nil {
			return qErr
		}
		areas, qErr = pgx.CollectRows(rows, func(row pgx.CollectableRow) (linker.AdminArea, error) {
			var area linker.AdminArea
			var cc pgtype.Text
			if err := row.Scan(&area.Name, &cc); err != nil {
				return area, err
			}
			area.CountryCode = cc.String
			return area, nil
		})
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return areas, nil
}

// LocationsInCountry returns locations named exactly name in countryCode.
func (e *Engine) LocationsInCountry(ctx context.Context, name, countryCode string) ([]linker.CatalogEntity, error) {
	b := psql.Select(locationCols).
		From(linker.Location.Table()).
		Where(sq.Eq{"name": name}).
		Where(sq.Eq{"cc2": countryCode})
	return e.queryLocations(ctx, "locations in country", b)
}

// SimilarLocationsInCountry returns ids of locations in countryCode whose
// name is more similar to name than threshold.
func (e *Engine) SimilarLocationsInCountry(ctx context.Context, name, countryCode string, threshold float64) ([]int64, error) {
	b := psql.Select("id").
		From(linker.Location.Table()).
		Where("similarity(name, ?) > ?", name, threshold).
		Where(sq.Eq{"cc2": countryCode})
	return e.queryIDs(ctx, "similar locations in country", b)
}

// LocationAliasesInCountry returns ids of locations in countryCode that
// carry name as an alias.
func (e *Engine) LocationAliasesInCountry(ctx context.Context, name, countryCode string) ([]int64, error) {
	b := psql.Select("id").
		From(linker.Location.Table()).
		Where("aliases @> ARRAY[?]::text[]", name).
		Where(sq.Eq{"cc2": countryCode})
	return e.queryIDs(ctx, "location aliases in country", b)
}

// PopulatedLocations returns locations named exactly name with a known
// population, most populous first.
func (e *Engine) PopulatedLocations(ctx context.Context, name string) ([]linker.CatalogEntity, error) {
	b := psql.Select(locationCols).
		From(linker.Location.Table()).
		Where(sq.Eq{"name": name}).
		Where("population IS NOT NULL").
		OrderBy("population DESC")
	return e.queryLocations(ctx, "populated locations", b)
}

func (e *Engine) queryLocations(ctx context.Context, op string, b sq.SelectBuilder) ([]linker.CatalogEntity, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	var out []linker.CatalogEntity
	err = e.read(ctx, op, func(conn Conn) error {
		rows, qErr := conn.Query(ctx, query, args...)
		if qErr != nil {
			return qErr
		}
		out, qErr = pgx.CollectRows(rows, scanLocation)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanLocation(row pgx.CollectableRow) (linker.CatalogEntity, error) {
	var (
		ent linker.CatalogEntity
		pop pgtype.Int8
		cc  pgtype.Text
	)
	if err := row.Scan(&ent.ID, &ent.Name, &pop, &cc); err != nil {
		return ent, err
	}
	if pop.Valid {
		p := pop.Int64
		ent.Population = &p
	}
	ent.CountryCode = cc.String
	return ent, nil
}
