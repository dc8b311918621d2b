package notification

import (
	"context"

	"github.com/shandysiswandi/passwordless/internal/notification/inbound"
	"github.com/shandysiswandi/passwordless/internal/notification/outbound/email"
	"github.com/shandysiswandi/passwordless/internal/notification/outbound/textmsg"
	"github.com/shandysiswandi/passwordless/internal/notification/usecase"
	"github.com/shandysiswandi/passwordless/internal/pkg/clock"
	"github.com/shandysiswandi/passwordless/internal/pkg/config"
	"github.com/shandysiswandi/passwordless/internal/pkg/goroutine"
	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/mail"
	"github.com/shandysiswandi/passwordless/internal/pkg/messaging"
	"github.com/shandysiswandi/passwordless/internal/pkg/sms"
	"github.com/shandysiswandi/passwordless/internal/pkg/uid"
	"github.com/shandysiswandi/passwordless/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context
	Messaging  messaging.Messaging
	Config     config.Config
	Instrument instrument.Instrumentation
	UUID       uid.StringID
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	Validator  validator.Validator
	Mail       mail.Mail
	SMS        sms.Client
}

func New(dep Dependency) error {
	repoMail := email.New(dep.Mail, dep.Instrument)
	repoSMS := textmsg.New(dep.SMS, dep.Instrument)

	uc := usecase.NewNotification(usecase.Dependency{
		Config:     dep.Config,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		RepoMail:   repoMail,
		RepoSMS:    repoSMS,
		Instrument: dep.Instrument,
	})

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
