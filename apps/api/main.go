package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/course"
	"github.com/trezcool/chuo/core/event"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/prefs"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	logsvc "github.com/trezcool/chuo/services/logger"
	"github.com/trezcool/chuo/storage/database"
	sqlxrepos "github.com/trezcool/chuo/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(sdb)
	prefsRepo := sqlxrepos.NewPrefsRepository(sdb)

	usrSvc := user.NewService(conf, usrRepo, mailSvc)
	sessSvc := session.NewService(conf, sqlxrepos.NewSessionRepository(sdb))
	prefsSvc := prefs.NewService(prefsRepo)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(sdb))
	asgSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(sdb))
	eventSvc := event.NewService(sqlxrepos.NewEventRepository(sdb))
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(sdb), usrRepo, prefsRepo, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Addr(),
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },

		UserSvc:         usrSvc,
		SessionSvc:      sessSvc,
		PrefsSvc:        prefsSvc,
		CourseSvc:       courseSvc,
		AssignmentSvc:   asgSvc,
		EventSvc:        eventSvc,
		NotificationSvc: notifSvc,
	})

	go server.Start()

	// garbage-collect dead sessions in the background
	cleanupDone := make(chan struct{})
	go cleanupSessions(sessSvc, conf.Session.CleanupInterval, logger, cleanupDone)

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	close(cleanupDone)

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func cleanupSessions(svc session.Service, interval time.Duration, logger core.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cnt, err := svc.CleanupExpired(context.Background()); err != nil {
				logger.Error("cleaning up sessions", err)
			} else if cnt > 0 {
				logger.Info(fmt.Sprintf("cleaned up %d dead sessions", cnt))
			}
		case <-done:
			return
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
