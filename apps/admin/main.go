package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	emailsvc "github.com/trezcool/appel/services/email"
	logsvc "github.com/trezcool/appel/services/logger"
	"github.com/trezcool/appel/storage/database"
	sqlxrepos "github.com/trezcool/appel/storage/database/sqlx"
)

func main() {
	conf, err := core.LoadConfig()
	errAndDie(err)

	logger, err := logsvc.NewZapLogger(conf)
	errAndDie(err)
	defer logger.Sync()

	// set up DB
	sqlDB, err := database.Open(conf)
	errAndDie(err)
	defer sqlDB.Close()
	errAndDie(database.Ping(context.Background(), sqlDB))
	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	identity.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	idRepo := sqlxrepos.NewIdentityRepository(db)

	// start CLI
	cli := commandLine{
		db:         sqlDB,
		idSvc:      identity.NewService(conf, idRepo, emailsvc.NewConsoleService(conf, logger), validate),
		idRepo:     idRepo,
		rosterRepo: sqlxrepos.NewRosterRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
