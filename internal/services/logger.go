package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceIdentifier is implemented by DI instances whose log lines should
// carry their container id.
type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger scopes zerolog output to a single DI service.
type ServiceLogger struct {
	base zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{base: log.With().Str("service", svc.ID()).Logger()}
}

// Scoped returns a child logger tagged with a subsystem name.
func (l *ServiceLogger) Scoped(name string) zerolog.Logger {
	return l.base.With().Str("scope", name).Logger()
}

func (l *ServiceLogger) Debug() *zerolog.Event { return l.base.Debug() }
func (l *ServiceLogger) Info() *zerolog.Event  { return l.base.Info() }
func (l *ServiceLogger) Warn() *zerolog.Event  { return l.base.Warn() }
func (l *ServiceLogger) Error() *zerolog.Event { return l.base.Error() }
