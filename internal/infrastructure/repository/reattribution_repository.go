package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// logSearchField discriminates the rows of log_search that reference an
// actor; the table holds other kinds of search keys under other field names.
const logSearchField = "target_author_actor"

// ReattributionRepository rewrites actor references on content tables from
// stub actors to the actors created at import time. Updates are keyed on the
// old actor id, so a row already rewritten is never touched again.
type ReattributionRepository struct {
	pool *pgxpool.Pool
}

func NewReattributionRepository(pool *pgxpool.Pool) *ReattributionRepository {
	return &ReattributionRepository{pool: pool}
}

// SelectIDs returns the ids of rows on the given table still attributed to
// one of the old actors. Ids are returned as text because some tables key
// rows by name rather than by number.
func (r *ReattributionRepository) SelectIDs(ctx context.Context, table domain.ContentTable, oldActorIDs []int64) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT %s::text FROM %s WHERE %s = ANY($1)",
		table.IDColumn, table.Name, table.ActorColumn,
	)

	rows, err := r.pool.Query(ctx, query, oldActorIDs)
	if err != nil {
		return nil, fmt.Errorf("select %s ids: %w", table.Name, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table.Name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s ids: %w", table.Name, err)
	}
	return ids, nil
}

// SelectLogSearchIDs returns the log ids whose search rows still point at one
// of the old actors. log_search stores the actor id as text in ls_value.
func (r *ReattributionRepository) SelectLogSearchIDs(ctx context.Context, oldActorIDs []int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT DISTINCT ls_log_id::text FROM log_search WHERE ls_field = $1 AND ls_value = ANY($2)",
		logSearchField, actorIDsAsText(oldActorIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select log_search ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan log_search id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select log_search ids: %w", err)
	}
	return ids, nil
}

// Reattribute rewrites the actor column on the given rows for every old/new
// pair at once.
func (r *ReattributionRepository) Reattribute(ctx context.Context, table domain.ContentTable, ids []string, pairs []domain.ActorMigrationPair) (int64, error) {
	if len(ids) == 0 || len(pairs) == 0 {
		return 0, nil
	}

	caseExpr, args := actorCaseExpr(table.ActorColumn, pairs, 2)
	idMatch := fmt.Sprintf("%s = ANY($1::bigint[])", table.IDColumn)
	if table.StringID {
		idMatch = fmt.Sprintf("%s = ANY($1)", table.IDColumn)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s WHERE %s AND %s = ANY(%s)",
		table.Name, table.ActorColumn, caseExpr, idMatch, table.ActorColumn, args.oldsPlaceholder,
	)

	tag, err := r.pool.Exec(ctx, query, append([]any{ids}, args.values...)...)
	if err != nil {
		return 0, fmt.Errorf("reattribute %s: %w", table.Name, err)
	}
	return tag.RowsAffected(), nil
}

// ReattributeLogSearch rewrites ls_value on the actor search rows of the
// given log entries.
func (r *ReattributionRepository) ReattributeLogSearch(ctx context.Context, ids []string, pairs []domain.ActorMigrationPair) (int64, error) {
	if len(ids) == 0 || len(pairs) == 0 {
		return 0, nil
	}

	caseExpr, args := textCaseExpr("ls_value", pairs, 3)
	query := fmt.Sprintf(
		"UPDATE log_search SET ls_value = %s WHERE ls_field = $1 AND ls_log_id = ANY($2::bigint[]) AND ls_value = ANY(%s)",
		caseExpr, args.oldsPlaceholder,
	)

	tag, err := r.pool.Exec(ctx, query, append([]any{logSearchField, ids}, args.values...)...)
	if err != nil {
		return 0, fmt.Errorf("reattribute log_search: %w", err)
	}
	return tag.RowsAffected(), nil
}

// BackfillTable rewrites every row of the table still attributed to an old
// actor, without an id filter. Used by the maintenance command.
func (r *ReattributionRepository) BackfillTable(ctx context.Context, table domain.ContentTable, pairs []domain.ActorMigrationPair) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	caseExpr, args := actorCaseExpr(table.ActorColumn, pairs, 1)
	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s WHERE %s = ANY(%s)",
		table.Name, table.ActorColumn, caseExpr, table.ActorColumn, args.oldsPlaceholder,
	)

	tag, err := r.pool.Exec(ctx, query, args.values...)
	if err != nil {
		return 0, fmt.Errorf("backfill %s: %w", table.Name, err)
	}
	return tag.RowsAffected(), nil
}

// BackfillLogSearch rewrites every actor search row still pointing at an old
// actor.
func (r *ReattributionRepository) BackfillLogSearch(ctx context.Context, pairs []domain.ActorMigrationPair) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	caseExpr, args := textCaseExpr("ls_value", pairs, 2)
	query := fmt.Sprintf(
		"UPDATE log_search SET ls_value = %s WHERE ls_field = $1 AND ls_value = ANY(%s)",
		caseExpr, args.oldsPlaceholder,
	)

	tag, err := r.pool.Exec(ctx, query, append([]any{logSearchField}, args.values...)...)
	if err != nil {
		return 0, fmt.Errorf("backfill log_search: %w", err)
	}
	return tag.RowsAffected(), nil
}

type caseArgs struct {
	values          []any
	oldsPlaceholder string
}

// actorCaseExpr builds a CASE expression mapping each old actor id to its
// replacement, falling through to the current value. The old ids are also
// collected into a single array parameter for the WHERE clause.
func actorCaseExpr(column string, pairs []domain.ActorMigrationPair, firstArg int) (string, caseArgs) {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)

	args := caseArgs{values: make([]any, 0, 2*len(pairs)+1)}
	olds := make([]int64, 0, len(pairs))
	n := firstArg
	for _, pair := range pairs {
		fmt.Fprintf(&b, " WHEN $%d THEN $%d", n, n+1)
		args.values = append(args.values, pair.OldActorID, pair.NewActorID)
		olds = append(olds, pair.OldActorID)
		n += 2
	}
	b.WriteString(" ELSE ")
	b.WriteString(column)
	b.WriteString(" END")

	args.values = append(args.values, olds)
	args.oldsPlaceholder = "$" + strconv.Itoa(n)
	return b.String(), args
}

// textCaseExpr is actorCaseExpr for columns that store the actor id as text.
func textCaseExpr(column string, pairs []domain.ActorMigrationPair, firstArg int) (string, caseArgs) {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)

	args := caseArgs{values: make([]any, 0, 2*len(pairs)+1)}
	olds := make([]string, 0, len(pairs))
	n := firstArg
	for _, pair := range pairs {
		fmt.Fprintf(&b, " WHEN $%d THEN $%d", n, n+1)
		old := strconv.FormatInt(pair.OldActorID, 10)
		args.values = append(args.values, old, strconv.FormatInt(pair.NewActorID, 10))
		olds = append(olds, old)
		n += 2
	}
	b.WriteString(" ELSE ")
	b.WriteString(column)
	b.WriteString(" END")

	args.values = append(args.values, olds)
	args.oldsPlaceholder = "$" + strconv.Itoa(n)
	return b.String(), args
}

func actorIDsAsText(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
