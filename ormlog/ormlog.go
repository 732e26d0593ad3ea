// Package ormlog adapts structured loggers to orm.Logger.
//
//	db := orm.New(sqlDB, orm.PostgreSQL, orm.WithLogger(ormlog.NewZap(logger)))
package ormlog

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/mickamy/eagerorm/orm"
)

// Message is the log message of every statement entry.
const Message = "sql executed"

// Zap logs statements with a *zap.Logger at info level.
type Zap struct {
	Logger *zap.Logger
}

// NewZap wraps logger.
func NewZap(logger *zap.Logger) *Zap {
	return &Zap{Logger: logger}
}

func (l *Zap) Log(_ context.Context, query string, args ...any) {
	l.Logger.Info(Message, zap.String("sql", query), zap.Any("args", args))
}

// Zerolog logs statements with a zerolog.Logger at info level.
type Zerolog struct {
	Logger zerolog.Logger
}

// NewZerolog wraps logger.
func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{Logger: logger}
}

func (l *Zerolog) Log(_ context.Context, query string, args ...any) {
	l.Logger.Info().
		Str("sql", query).
		Interface("args", args).
		Msg(Message)
}

// Logrus logs statements with a logrus logger or entry at info level.
type Logrus struct {
	Logger logrus.FieldLogger
}

// NewLogrus wraps logger.
func NewLogrus(logger logrus.FieldLogger) *Logrus {
	return &Logrus{Logger: logger}
}

func (l *Logrus) Log(ctx context.Context, query string, args ...any) {
	l.Logger.WithFields(logrus.Fields{
		"sql":  query,
		"args": args,
	}).WithContext(ctx).Info(Message)
}

var (
	_ orm.Logger = (*Zap)(nil)
	_ orm.Logger = (*Zerolog)(nil)
	_ orm.Logger = (*Logrus)(nil)
)
