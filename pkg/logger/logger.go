package logger

import "context"

// Field is a structured logging key/value pair.
type Field struct {
	Key   string
	Value any
}

// Logger is the logging abstraction used across the application.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}
