package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

// addUser creates an account, or sets the password of the account already holding the email.
func (cli *commandLine) addUser(ctx context.Context, role identity.Role, na identity.NewAccount) error {
	email := core.CleanString(na.Email, true /* lower */)
	acc, err := cli.idRepo.GetAccountByEmail(ctx, role, email)
	switch errors.Cause(err) {
	case nil:
		if err = cli.idSvc.SetPassword(ctx, acc.Principal(), na.Password); err != nil {
			return err
		}
		cli.printf("%s %s updated\n", role, email)
		return nil
	case core.ErrNotFound:
	default:
		return err
	}

	if acc, err = cli.idSvc.Create(ctx, role, na); err != nil {
		return err
	}
	cli.printf("%s %s created (id %d)\n", role, email, acc.GetProfile().ID)
	return nil
}
