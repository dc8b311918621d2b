package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passwordless/internal/pkg/clock"
	"github.com/shandysiswandi/passwordless/internal/pkg/config"
	"github.com/shandysiswandi/passwordless/internal/pkg/goroutine"
	"github.com/shandysiswandi/passwordless/internal/pkg/hash"
	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/jwt"
	"github.com/shandysiswandi/passwordless/internal/pkg/lock"
	"github.com/shandysiswandi/passwordless/internal/pkg/mail"
	"github.com/shandysiswandi/passwordless/internal/pkg/messaging"
	"github.com/shandysiswandi/passwordless/internal/pkg/otpcode"
	"github.com/shandysiswandi/passwordless/internal/pkg/router"
	"github.com/shandysiswandi/passwordless/internal/pkg/sms"
	"github.com/shandysiswandi/passwordless/internal/pkg/uid"
	"github.com/shandysiswandi/passwordless/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID
	codeGen   otpcode.Generator
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	locker    lock.Locker
	mail      mail.Mail
	sms       sms.Client
	messaging messaging.Messaging

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initSMS()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
