package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

var accountTables = map[identity.Role]string{
	identity.RoleAdmin:   "admins",
	identity.RoleTeacher: "teachers",
	identity.RoleParent:  "parents",
}

type accountRow struct {
	ID           int64     `db:"id"`
	GivenName    string    `db:"given_name"`
	FamilyName   string    `db:"family_name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    null.Time `db:"created_at"`
}

func (row accountRow) account(role identity.Role) identity.Account {
	prof := identity.Profile{
		ID:           row.ID,
		GivenName:    row.GivenName,
		FamilyName:   row.FamilyName,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
	}
	switch role {
	case identity.RoleAdmin:
		return identity.Admin{Profile: prof}
	case identity.RoleTeacher:
		return identity.Teacher{Profile: prof, CreatedAt: row.CreatedAt.Time}
	default:
		return identity.Parent{Profile: prof, CreatedAt: row.CreatedAt.Time}
	}
}

type identityRepository struct {
	db *sqlx.DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *sqlx.DB) identity.Repository {
	return &identityRepository{db: db}
}

// columns returns the select list of a role table; admins have no created_at.
func columns(role identity.Role) string {
	cols := "id, given_name, family_name, email, password_hash, "
	if role == identity.RoleAdmin {
		return cols + "NULL::timestamptz AS created_at"
	}
	return cols + "created_at"
}

func table(role identity.Role) (string, error) {
	if t, ok := accountTables[role]; ok {
		return t, nil
	}
	return "", core.ErrNotFound
}

func (repo *identityRepository) GetAccountByEmail(ctx context.Context, role identity.Role, email string) (identity.Account, error) {
	t, err := table(role)
	if err != nil {
		return nil, err
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row accountRow
	q := "SELECT " + columns(role) + " FROM " + t + " WHERE email = $1"
	if err = repo.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, trapNoRowsErr(err, "finding account by email")
	}
	return row.account(role), nil
}

func (repo *identityRepository) GetAccount(ctx context.Context, p identity.Principal) (identity.Account, error) {
	t, err := table(p.Role)
	if err != nil {
		return nil, err
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row accountRow
	q := "SELECT " + columns(p.Role) + " FROM " + t + " WHERE id = $1"
	if err = repo.db.GetContext(ctx, &row, q, p.ID); err != nil {
		return nil, trapNoRowsErr(err, "finding account")
	}
	return row.account(p.Role), nil
}

func (repo *identityRepository) queryRows(ctx context.Context, role identity.Role) ([]accountRow, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]accountRow, 0)
	q := "SELECT " + columns(role) + " FROM " + accountTables[role] + " ORDER BY family_name, given_name, id"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, core.NewStorageError(err, "querying "+accountTables[role])
	}
	return rows, nil
}

func (repo *identityRepository) QueryTeachers(ctx context.Context) ([]identity.Teacher, error) {
	rows, err := repo.queryRows(ctx, identity.RoleTeacher)
	if err != nil {
		return nil, err
	}
	teachers := make([]identity.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.account(identity.RoleTeacher).(identity.Teacher))
	}
	return teachers, nil
}

func (repo *identityRepository) QueryParents(ctx context.Context) ([]identity.Parent, error) {
	rows, err := repo.queryRows(ctx, identity.RoleParent)
	if err != nil {
		return nil, err
	}
	parents := make([]identity.Parent, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, row.account(identity.RoleParent).(identity.Parent))
	}
	return parents, nil
}

func (repo *identityRepository) CreateAccount(ctx context.Context, role identity.Role, prof identity.Profile) (identity.Account, error) {
	t, err := table(role)
	if err != nil {
		return nil, err
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row accountRow
	q := "INSERT INTO " + t + " (given_name, family_name, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING " + columns(role)
	err = repo.db.GetContext(ctx, &row, q, prof.GivenName, prof.FamilyName, prof.Email, prof.PasswordHash)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, identity.ErrEmailExists
		}
		return nil, core.NewStorageError(err, "inserting account")
	}
	return row.account(role), nil
}

func (repo *identityRepository) UpdatePassword(ctx context.Context, p identity.Principal, hash []byte) error {
	t, err := table(p.Role)
	if err != nil {
		return err
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "UPDATE "+t+" SET password_hash = $2 WHERE id = $1", p.ID, hash)
	if err != nil {
		return core.NewStorageError(err, "updating password")
	}
	return checkAffected(res, "updating password")
}

func (repo *identityRepository) DeleteAccount(ctx context.Context, p identity.Principal) error {
	t, err := table(p.Role)
	if err != nil {
		return err
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM "+t+" WHERE id = $1", p.ID)
	if err != nil {
		return core.NewStorageError(err, "deleting account")
	}
	return checkAffected(res, "deleting account")
}
