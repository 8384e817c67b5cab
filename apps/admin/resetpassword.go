package main

import (
	"context"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

func (cli *commandLine) resetPassword(ctx context.Context, role identity.Role, email, pwd string) error {
	acc, err := cli.idRepo.GetAccountByEmail(ctx, role, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	return cli.idSvc.SetPassword(ctx, acc.Principal(), pwd)
}
