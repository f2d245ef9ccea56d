package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/access"
	"github.com/tmwangi/chuo/core/calendar"
	"github.com/tmwangi/chuo/core/user"

	echoapi "github.com/tmwangi/chuo/apps/api/echo"
	emailsvc "github.com/tmwangi/chuo/services/email"
	logsvc "github.com/tmwangi/chuo/services/logger"
	"github.com/tmwangi/chuo/storage/database"
	sqlxrepos "github.com/tmwangi/chuo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	calSvc, err := calendar.NewService(
		conf, logger, mailSvc,
		sqlxrepos.NewPatternRepository(db),
		sqlxrepos.NewExceptionRepository(db),
		sqlxrepos.NewHolidayRepository(db),
		sqlxrepos.NewAcademicEventRepository(db),
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up calendar service: %v", err), err)
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(
		&echoapi.Options{
			Addr:        conf.Server.Addr(),
			Conf:        conf,
			Logger:      logger,
			UserSvc:     usrSvc,
			CalendarSvc: calSvc,
			Gate:        access.NewGate(access.DefaultTable()),
		},
	)
	if err := server.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)
	}
}
