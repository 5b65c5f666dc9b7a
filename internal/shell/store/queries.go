package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/search"
	"github.com/jmoiron/sqlx"
)

// =============================================================================
// Dialect
// =============================================================================

// dialect holds the per-driver SQL fragments. Ordering clauses are constants
// keyed by search.Order; the search text is always a bind parameter.
type dialect struct {
	bind      int
	like      string
	areaOrder map[search.Order]string
	codeOrder map[search.Order]string
}

var postgresDialect = dialect{
	bind: sqlx.DOLLAR,
	like: "ILIKE",
	areaOrder: map[search.Order]string{
		search.OrderByName:       "a.name",
		search.OrderBySimilarity: "similarity(a.name, :q) DESC, a.name",
	},
	codeOrder: map[search.Order]string{
		search.OrderByCodeThenName: "icd_code, name",
		search.OrderBySimilarity:   "similarity(name, :q) DESC, icd_code, name",
	},
}

// SQLite has no trigram similarity; prefix matches rank first, then earlier
// and shorter matches.
var sqliteDialect = dialect{
	bind: sqlx.QUESTION,
	like: "LIKE",
	areaOrder: map[search.Order]string{
		search.OrderByName: "a.name",
		search.OrderBySimilarity: "CASE WHEN lower(a.name) LIKE lower(:q) || '%' THEN 0 ELSE 1 END, " +
			"instr(lower(a.name), lower(:q)), length(a.name), a.name",
	},
	codeOrder: map[search.Order]string{
		search.OrderByCodeThenName: "icd_code, name",
		search.OrderBySimilarity: "CASE WHEN lower(name) LIKE lower(:q) || '%' THEN 0 ELSE 1 END, " +
			"instr(lower(name), lower(:q)), icd_code, name",
	},
}

func dialectFor(driverName string) dialect {
	if sqlx.BindType(driverName) == sqlx.DOLLAR {
		return postgresDialect
	}
	return sqliteDialect
}

// named expands :name parameters and rebinds for the driver.
func (d dialect) named(query string, arg any) (string, []any, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(d.bind, q), args, nil
}

// =============================================================================
// Queries - Shared by SQLStore and txSQLStore
// =============================================================================

type queries struct {
	ex executor
	d  dialect
}

// exists runs a SELECT 1 ... LIMIT 1 query and reports whether a row came back.
func (q queries) exists(ctx context.Context, query string, args map[string]any) (bool, error) {
	stmt, params, err := q.d.named(query, args)
	if err != nil {
		return false, err
	}
	var one int
	if err := q.ex.GetContext(ctx, &one, stmt, params...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// =============================================================================
// Validation Lookups
// =============================================================================

const wardInTownshipQuery = `
SELECT 1
FROM   wards w
JOIN   townships t ON t.id = w.township_id
WHERE  t.code = :township_code
  AND  w.code = :code
LIMIT 1`

const villageInTownshipQuery = `
SELECT 1
FROM   villages v
JOIN   townships t ON t.id = v.township_id
WHERE  t.code = :township_code
  AND  v.code = :code
LIMIT 1`

const classificationExistsQuery = `SELECT 1 FROM icd10_codes WHERE code = :code LIMIT 1`

func (q queries) WardInTownship(ctx context.Context, townshipCode, wardCode string) (bool, error) {
	ok, err := q.exists(ctx, wardInTownshipQuery, map[string]any{"township_code": townshipCode, "code": wardCode})
	if err != nil {
		return false, queryError("WardInTownship", "ward", wardCode, err)
	}
	return ok, nil
}

func (q queries) VillageInTownship(ctx context.Context, townshipCode, villageCode string) (bool, error) {
	ok, err := q.exists(ctx, villageInTownshipQuery, map[string]any{"township_code": townshipCode, "code": villageCode})
	if err != nil {
		return false, queryError("VillageInTownship", "village", villageCode, err)
	}
	return ok, nil
}

func (q queries) ClassificationCodeExists(ctx context.Context, code string) (bool, error) {
	ok, err := q.exists(ctx, classificationExistsQuery, map[string]any{"code": code})
	if err != nil {
		return false, queryError("ClassificationCodeExists", "icd10_code", code, err)
	}
	return ok, nil
}

// =============================================================================
// Listing
// =============================================================================

func (q queries) ListTownships(ctx context.Context) ([]domain.Township, error) {
	var rows []domain.Township
	err := q.ex.SelectContext(ctx, &rows, `SELECT id, uid, code, name, name_my FROM townships ORDER BY name`)
	if err != nil {
		return nil, queryError("ListTownships", "township", "", err)
	}
	if rows == nil {
		rows = []domain.Township{}
	}
	return rows, nil
}

func (q queries) SearchWards(ctx context.Context, townshipUID string, p search.Params) ([]domain.Area, error) {
	return q.searchAreas(ctx, "SearchWards", "wards", townshipUID, p)
}

func (q queries) SearchVillages(ctx context.Context, townshipUID string, p search.Params) ([]domain.Area, error) {
	return q.searchAreas(ctx, "SearchVillages", "villages", townshipUID, p)
}

// searchAreas lists rows of table (a constant) belonging to the township uid.
func (q queries) searchAreas(ctx context.Context, op, table, townshipUID string, p search.Params) ([]domain.Area, error) {
	p = p.Normalize()
	order := search.OrderFor(p.Query, search.KindArea)

	where := "t.uid = :township_uid"
	if p.Query != "" {
		where += fmt.Sprintf(" AND a.name %s '%%' || :q || '%%'", q.d.like)
	}

	query := fmt.Sprintf(`
SELECT a.uid, a.code, a.name, a.name_my
FROM   %s a
JOIN   townships t ON t.id = a.township_id
WHERE  %s
ORDER  BY %s
LIMIT  :limit`, table, where, q.d.areaOrder[order])

	stmt, args, err := q.d.named(query, map[string]any{
		"township_uid": townshipUID,
		"q":            p.Query,
		"limit":        p.Limit,
	})
	if err != nil {
		return nil, queryError(op, table, townshipUID, err)
	}

	rows := []domain.Area{}
	if err := q.ex.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, queryError(op, table, townshipUID, err)
	}
	return rows, nil
}

func (q queries) SearchClassificationCodes(ctx context.Context, p search.Params) (domain.ClassificationPage, error) {
	p = p.Normalize()
	order := search.OrderFor(p.Query, search.KindClassification)

	where := ""
	if p.Query != "" {
		where = fmt.Sprintf("WHERE name %s '%%' || :q || '%%'", q.d.like)
	}
	params := map[string]any{
		"q":      p.Query,
		"limit":  p.Limit,
		"offset": p.Offset(),
	}

	countStmt, countArgs, err := q.d.named("SELECT COUNT(*) FROM icd10_codes "+where, params)
	if err != nil {
		return domain.ClassificationPage{}, queryError("SearchClassificationCodes", "icd10_code", "", err)
	}
	var total int
	if err := q.ex.GetContext(ctx, &total, countStmt, countArgs...); err != nil {
		return domain.ClassificationPage{}, queryError("SearchClassificationCodes", "icd10_code", "", err)
	}

	query := fmt.Sprintf(`
SELECT uid, code, icd_code, name
FROM   icd10_codes
%s
ORDER  BY %s
LIMIT  :limit OFFSET :offset`, where, q.d.codeOrder[order])

	stmt, args, err := q.d.named(query, params)
	if err != nil {
		return domain.ClassificationPage{}, queryError("SearchClassificationCodes", "icd10_code", "", err)
	}
	results := []domain.ClassificationCode{}
	if err := q.ex.SelectContext(ctx, &results, stmt, args...); err != nil {
		return domain.ClassificationPage{}, queryError("SearchClassificationCodes", "icd10_code", "", err)
	}

	return domain.ClassificationPage{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Results: results,
	}, nil
}

// =============================================================================
// Loader Writes
// =============================================================================

// areaRow is the write shape of townships, wards and villages.
type areaRow struct {
	UID        string  `db:"uid"`
	Code       *string `db:"code"`
	Name       string  `db:"name"`
	NameMy     *string `db:"name_my"`
	TownshipID int     `db:"township_id"`
}

const upsertTownshipQuery = `
INSERT INTO townships (uid, code, name, name_my)
VALUES (:uid, :code, :name, :name_my)
ON CONFLICT (uid) DO UPDATE
  SET code    = excluded.code,
      name    = excluded.name,
      name_my = excluded.name_my`

const upsertAreaQuery = `
INSERT INTO %s (uid, code, name, name_my, township_id)
VALUES (:uid, :code, :name, :name_my, :township_id)
ON CONFLICT (uid) DO UPDATE
  SET code        = excluded.code,
      name        = excluded.name,
      name_my     = excluded.name_my,
      township_id = excluded.township_id`

type townshipID struct {
	UID string `db:"uid"`
	ID  int    `db:"id"`
}

// UpsertTownships inserts or updates townships by uid and returns the row id
// of every township in the table keyed by uid.
func (q queries) UpsertTownships(ctx context.Context, options []domain.AreaOption) (map[string]int, error) {
	for _, o := range options {
		row := areaRow{UID: o.UID, Code: o.Code, Name: o.Name, NameMy: o.NameMy}
		if _, err := q.ex.NamedExecContext(ctx, upsertTownshipQuery, row); err != nil {
			return nil, queryError("UpsertTownships", "township", o.UID, err)
		}
	}

	var ids []townshipID
	if err := q.ex.SelectContext(ctx, &ids, `SELECT uid, id FROM townships`); err != nil {
		return nil, queryError("UpsertTownships", "township", "", err)
	}

	out := make(map[string]int, len(ids))
	for _, r := range ids {
		out[r.UID] = r.ID
	}
	return out, nil
}

func (q queries) UpsertWards(ctx context.Context, rows []domain.LinkedOption) error {
	return q.upsertAreas(ctx, "UpsertWards", "wards", rows)
}

func (q queries) UpsertVillages(ctx context.Context, rows []domain.LinkedOption) error {
	return q.upsertAreas(ctx, "UpsertVillages", "villages", rows)
}

func (q queries) upsertAreas(ctx context.Context, op, table string, rows []domain.LinkedOption) error {
	query := fmt.Sprintf(upsertAreaQuery, table)
	for _, r := range rows {
		row := areaRow{
			UID:        r.UID,
			Code:       r.Code,
			Name:       r.Name,
			NameMy:     r.NameMy,
			TownshipID: r.TownshipID,
		}
		if _, err := q.ex.NamedExecContext(ctx, query, row); err != nil {
			return queryError(op, table, r.UID, err)
		}
	}
	return nil
}
