package mailservice

import (
	"context"

	"github.com/trendstalk/trendstalk/internal/common"
)

type MailService struct {
	mb     common.MessageConsumer
	m      Mailer
	logger MailLogger
	ctx    context.Context
	cancel context.CancelFunc
}

// MailLogger is the slice of slog.Logger the service uses; tests substitute
// a mock.
type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mailer interface {
	send(recipient string, data any, templateName string) error
}
