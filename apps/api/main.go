package main

import (
	stdlog "log"
	"os"

	"github.com/redis/go-redis/v9"

	echoapi "github.com/trezcool/mtaala/apps/api/echo"
	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
	logsvc "github.com/trezcool/mtaala/services/logger"
	"github.com/trezcool/mtaala/storage/database"
	sqlxrepos "github.com/trezcool/mtaala/storage/database/sqlx"
	redisbroadcast "github.com/trezcool/mtaala/storage/redis"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	// set up logging
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger()
	} else {
		logger = logsvc.NewRollbarLogger(stdlog.New(os.Stdout, "", stdlog.LstdFlags|stdlog.Lshortfile), conf)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	if conf.Debug {
		errAndDie(database.Migrate(db))
	}

	// set up broadcast channel
	broadcaster := redisbroadcast.NewBroadcaster(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	}, logger)
	defer func() { _ = broadcaster.Close() }()

	// set up services
	changeSvc := changelog.NewService(sqlxrepos.NewChangeRepository(db), logger, conf)
	curriculumSvc := curriculum.NewService(sqlxrepos.NewDocumentRepository(db), broadcaster, changeSvc, logger)
	collabSvc := collab.NewService(sqlxrepos.NewSessionRepository(db), logger, conf)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:          conf.Server.Addr,
		Conf:          conf,
		Logger:        logger,
		CurriculumSvc: curriculumSvc,
		CollabSvc:     collabSvc,
		Broadcaster:   broadcaster,
	})
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		stdlog.Fatal(err)
	}
}
