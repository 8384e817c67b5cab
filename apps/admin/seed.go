package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/roster"
)

type (
	seedAccount struct {
		given, family, email, password string
	}

	seedClass struct {
		name    string
		teacher int // index in seedTeachers
	}

	seedStudent struct {
		given, family string
		parent, class int // indexes in seedParents & seedClasses
	}
)

var (
	seedAdmin = seedAccount{"System", "Admin", "admin@ecole.fr", "admin123"}

	seedTeachers = []seedAccount{
		{"Fatou", "Kone", "fatou.kone@mail.com", "teacher1"},
		{"Ibrahim", "Traore", "ibrahim.traore@mail.com", "teacher2"},
		{"Mariama", "Diop", "mariama.diop@mail.com", "teacher3"},
		{"Modou", "Ba", "modou.ba@mail.com", "teacher4"},
	}

	seedParents = []seedAccount{
		{"Awa", "Ndiaye", "awa.ndiaye@mail.com", "password1"},
		{"Moussa", "Diallo", "moussa.diallo@mail.com", "password2"},
		{"Aminata", "Kane", "amina.kane@mail.com", "password3"},
		{"Abdoulaye", "Sow", "abdoul.sow@mail.com", "password4"},
	}

	seedClasses = []seedClass{
		{"6ème A", 0}, {"6ème B", 1}, {"5ème A", 2}, {"5ème B", 3}, {"4ème A", 0}, {"4ème B", 1},
	}

	seedStudents = []seedStudent{
		{"Amadou", "Ndiaye", 0, 0}, {"Mariama", "Diallo", 1, 0}, {"Fatima", "Sow", 2, 0}, {"Ibrahima", "Kane", 3, 0},
		{"Aïcha", "Traore", 0, 1}, {"Moussa", "Diop", 1, 1}, {"Khadija", "Ba", 2, 1}, {"Ousmane", "Fall", 3, 1},
		{"Rokhaya", "Gueye", 0, 2}, {"Cheikh", "Mbaye", 1, 2}, {"Aminata", "Niang", 2, 2}, {"Mamadou", "Sy", 3, 2},
	}
)

// ensureAccount returns the account holding the email, creating it when missing.
func (cli *commandLine) ensureAccount(ctx context.Context, role identity.Role, sa seedAccount) (identity.Account, error) {
	prof := identity.Profile{GivenName: sa.given, FamilyName: sa.family, Email: sa.email}
	if err := prof.SetPassword(sa.password); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	acc, err := cli.idRepo.CreateAccount(ctx, role, prof)
	if errors.Cause(err) == identity.ErrEmailExists {
		return cli.idRepo.GetAccountByEmail(ctx, role, sa.email)
	}
	return acc, err
}

// seed loads the demo school. Accounts are matched by email; the roster is only loaded into an empty database.
func (cli *commandLine) seed(ctx context.Context) error {
	if _, err := cli.ensureAccount(ctx, identity.RoleAdmin, seedAdmin); err != nil {
		return errors.Wrap(err, "seeding admin")
	}

	teacherIDs := make([]int64, len(seedTeachers))
	for i, sa := range seedTeachers {
		acc, err := cli.ensureAccount(ctx, identity.RoleTeacher, sa)
		if err != nil {
			return errors.Wrapf(err, "seeding teacher %s", sa.email)
		}
		teacherIDs[i] = acc.GetProfile().ID
	}

	parentIDs := make([]int64, len(seedParents))
	for i, sa := range seedParents {
		acc, err := cli.ensureAccount(ctx, identity.RoleParent, sa)
		if err != nil {
			return errors.Wrapf(err, "seeding parent %s", sa.email)
		}
		parentIDs[i] = acc.GetProfile().ID
	}

	classes, err := cli.rosterRepo.QueryClasses(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if len(classes) > 0 {
		cli.printf("roster already loaded, %d classes\n", len(classes))
		return nil
	}

	classIDs := make([]int64, len(seedClasses))
	for i, sc := range seedClasses {
		cls, err := cli.rosterRepo.CreateClass(ctx, roster.Class{Name: sc.name, TeacherID: teacherIDs[sc.teacher]})
		if err != nil {
			return errors.Wrapf(err, "seeding class %s", sc.name)
		}
		classIDs[i] = cls.ID
	}

	for _, ss := range seedStudents {
		_, err := cli.rosterRepo.CreateStudent(ctx, roster.Student{
			GivenName:  ss.given,
			FamilyName: ss.family,
			ClassID:    classIDs[ss.class],
			ParentID:   parentIDs[ss.parent],
		})
		if err != nil {
			return errors.Wrapf(err, "seeding student %s %s", ss.given, ss.family)
		}
	}
	cli.printf("seeded %d classes and %d students\n", len(seedClasses), len(seedStudents))
	return nil
}
