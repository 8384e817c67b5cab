package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

type identityRepository struct {
	db *DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *DB) identity.Repository {
	return &identityRepository{db: db}
}

func (row accountRow) account(role identity.Role) identity.Account {
	switch role {
	case identity.RoleAdmin:
		return identity.Admin{Profile: row.profile}
	case identity.RoleTeacher:
		return identity.Teacher{Profile: row.profile, CreatedAt: row.createdAt}
	default:
		return identity.Parent{Profile: row.profile, CreatedAt: row.createdAt}
	}
}

func (repo *identityRepository) GetAccountByEmail(_ context.Context, role identity.Role, email string) (identity.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, row := range repo.db.accounts[role] {
		if row.profile.Email == email {
			return row.account(role), nil
		}
	}
	return nil, core.ErrNotFound
}

func (repo *identityRepository) GetAccount(_ context.Context, p identity.Principal) (identity.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.accounts[p.Role][p.ID]; ok {
		return row.account(p.Role), nil
	}
	return nil, core.ErrNotFound
}

func (repo *identityRepository) sortedRows(role identity.Role) []*accountRow {
	rows := make([]*accountRow, 0, len(repo.db.accounts[role]))
	for _, row := range repo.db.accounts[role] {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].profile, rows[j].profile
		if a.FamilyName != b.FamilyName {
			return a.FamilyName < b.FamilyName
		}
		if a.GivenName != b.GivenName {
			return a.GivenName < b.GivenName
		}
		return a.ID < b.ID
	})
	return rows
}

func (repo *identityRepository) QueryTeachers(_ context.Context) ([]identity.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.sortedRows(identity.RoleTeacher)
	teachers := make([]identity.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, identity.Teacher{Profile: row.profile, CreatedAt: row.createdAt})
	}
	return teachers, nil
}

func (repo *identityRepository) QueryParents(_ context.Context) ([]identity.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := repo.sortedRows(identity.RoleParent)
	parents := make([]identity.Parent, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, identity.Parent{Profile: row.profile, CreatedAt: row.createdAt})
	}
	return parents, nil
}

func (repo *identityRepository) CreateAccount(_ context.Context, role identity.Role, prof identity.Profile) (identity.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	table, ok := repo.db.accounts[role]
	if !ok {
		return nil, core.ErrNotFound
	}
	for _, row := range table {
		if row.profile.Email == prof.Email {
			return nil, identity.ErrEmailExists
		}
	}
	prof.ID = repo.db.nextID()
	row := &accountRow{profile: prof, createdAt: time.Now().UTC()}
	table[prof.ID] = row
	return row.account(role), nil
}

func (repo *identityRepository) UpdatePassword(_ context.Context, p identity.Principal, hash []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.accounts[p.Role][p.ID]
	if !ok {
		return core.ErrNotFound
	}
	row.profile.PasswordHash = hash
	return nil
}

func (repo *identityRepository) DeleteAccount(_ context.Context, p identity.Principal) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.accounts[p.Role][p.ID]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.accounts[p.Role], p.ID)

	// same as the ON DELETE SET NULL foreign keys
	switch p.Role {
	case identity.RoleTeacher:
		for _, cls := range repo.db.classes {
			if cls.TeacherID == p.ID {
				cls.TeacherID = 0
			}
		}
		for _, n := range repo.db.notifications {
			if n.TeacherID == p.ID {
				n.TeacherID = 0
			}
		}
	case identity.RoleParent:
		for _, std := range repo.db.students {
			if std.ParentID == p.ID {
				std.ParentID = 0
			}
		}
		for _, n := range repo.db.notifications {
			if n.ParentID == p.ID {
				n.ParentID = 0
			}
		}
	}
	return nil
}
