package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/passwordless/internal/auth/inbound"
	"github.com/shandysiswandi/passwordless/internal/auth/outbound/db"
	"github.com/shandysiswandi/passwordless/internal/auth/outbound/mq"
	"github.com/shandysiswandi/passwordless/internal/auth/outbound/notify"
	"github.com/shandysiswandi/passwordless/internal/auth/usecase"
	"github.com/shandysiswandi/passwordless/internal/pkg/clock"
	"github.com/shandysiswandi/passwordless/internal/pkg/config"
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

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Locker     lock.Locker                `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	SMS        sms.Client                 `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	CodeGen    otpcode.Generator          `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbAuth := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)
	dispatcher := notify.New(dep.Mail, dep.SMS, notify.Config{
		EmailFrom: dep.Config.GetString("mail.from"),
		MaxRetry:  uint64(dep.Config.GetInt("notify.max_retry")),
	}, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        dbAuth,
		RepoMessaging: repoMsg,
		Notifier:      dispatcher,
		Locker:        dep.Locker,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		CodeGen:       dep.CodeGen,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
