package persistence

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/apperror"
	"github.com/khoahotran/devconnect/pkg/logger"
)

var psqlAccount = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type postgresAccountRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresAccountRepo(db *pgxpool.Pool, logger logger.Logger) account.Repository {
	return &postgresAccountRepo{db: db, logger: logger}
}

func (r *postgresAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, name, email, avatar, password_hash
		FROM accounts
		WHERE id = $1
	`
	a := &account.Account{}
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Email, &a.Avatar, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, accountNotFound(id)
		}
		return nil, classifyPgErr("failed to query account", err)
	}
	return a, nil
}

func (r *postgresAccountRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	out := make(map[uuid.UUID]*account.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := psqlAccount.Select("id, name, email, avatar").
		From("accounts").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find accounts query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyPgErr("failed to query accounts", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := &account.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Avatar); err != nil {
			return nil, apperror.NewInternal("failed to scan account", err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgErr("failed to iterate accounts", err)
	}
	return out, nil
}

func (r *postgresAccountRepo) Save(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, avatar, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			avatar = EXCLUDED.avatar,
			password_hash = EXCLUDED.password_hash
	`
	_, err := r.db.Exec(ctx, query, a.ID, a.Name, a.Email, a.Avatar, a.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("account", "email", a.Email)
		}
		return classifyPgErr("failed to save account", err)
	}
	return nil
}

func (r *postgresAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return classifyPgErr("failed to delete account", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return accountNotFound(id)
	}
	return nil
}
