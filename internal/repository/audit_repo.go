package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"petromanage/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	var userID *int64
	if entry.Actor.UserID != 0 {
		userID = &entry.Actor.UserID
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_audit
		 (action, occurred_at, user_id, email, role, client_ip, status, code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Action, entry.OccurredAt, userID,
		entry.Actor.Email, nullString(entry.Actor.Role), nullString(entry.Actor.ClientIP),
		entry.Status, nullString(entry.Code))
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// Query expects a query already normalized by the audit service.
func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	var where whereBuilder
	where.addIf(query.Action, "action = $%d")
	where.addIf(query.Email, "email = $%d")
	where.addIf(query.Status, "status = $%d")
	where.addIf(query.From, "occurred_at >= $%d::timestamptz")
	where.addIf(query.To, "occurred_at <= $%d::timestamptz")

	var total int
	countQuery := "SELECT COUNT(*) FROM auth_audit " + where.clause()
	if err := r.pool.QueryRow(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}
	meta := pageMeta(query, total)

	limitAt := len(where.args) + 1
	dataQuery := fmt.Sprintf(
		`SELECT action, occurred_at, user_id, email, role, client_ip, status, code
		 FROM auth_audit %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, where.clause(), limitAt, limitAt+1)
	args := append(where.args, query.Limit, (query.Page-1)*query.Limit)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var userID *int64
		var role, clientIP, code *string

		if err := rows.Scan(&e.Action, &e.OccurredAt, &userID, &e.Actor.Email, &role, &clientIP, &e.Status, &code); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.OccurredAt = e.OccurredAt.UTC()
		if userID != nil {
			e.Actor.UserID = *userID
		}
		e.Actor.Role = deref(role)
		e.Actor.ClientIP = deref(clientIP)
		e.Code = deref(code)

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}

// whereBuilder numbers placeholders in the order conditions are added.
type whereBuilder struct {
	conds []string
	args  []any
}

// addIf adds cond, whose single %d becomes the placeholder index, when value
// is not blank.
func (b *whereBuilder) addIf(value string, cond string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.args = append(b.args, value)
	b.conds = append(b.conds, fmt.Sprintf(cond, len(b.args)))
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

func pageMeta(query model.AuditQuery, total int) model.Meta {
	totalPages := 0
	if total > 0 && query.Limit > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}
	return model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}
}
