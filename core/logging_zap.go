package core

import "go.uber.org/zap"

type loggerFromZap struct {
	zapLogger *zap.Logger
}

// NewLoggerFromZap creates a Logger backed by a zap logger, the default
// logging backend for the device runtime.
func NewLoggerFromZap(zapLogger *zap.Logger) Logger {
	return &loggerFromZap{zapLogger}
}

func (l *loggerFromZap) Debug(msg string, fields ...LogField) {
	l.zapLogger.Debug(msg, convertLogFieldsToZap(fields)...)
}

func (l *loggerFromZap) Info(msg string, fields ...LogField) {
	l.zapLogger.Info(msg, convertLogFieldsToZap(fields)...)
}

func (l *loggerFromZap) Warn(msg string, fields ...LogField) {
	l.zapLogger.Warn(msg, convertLogFieldsToZap(fields)...)
}

func (l *loggerFromZap) Error(msg string, fields ...LogField) {
	l.zapLogger.Error(msg, convertLogFieldsToZap(fields)...)
}

func (l *loggerFromZap) Fatal(msg string, fields ...LogField) {
	l.zapLogger.Fatal(msg, convertLogFieldsToZap(fields)...)
}

func (l *loggerFromZap) WithFields(fields ...LogField) Logger {
	return &loggerFromZap{zapLogger: l.zapLogger.With(convertLogFieldsToZap(fields)...)}
}

func (l *loggerFromZap) Named(name string) Logger {
	return &loggerFromZap{zapLogger: l.zapLogger.Named(name)}
}

func convertLogFieldsToZap(fields []LogField) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		zapFields = append(zapFields, convertLogFieldToZap(field))
	}
	return zapFields
}

func convertLogFieldToZap(field LogField) zap.Field {
	switch field.Type {
	case StringLogFieldType:
		return zap.String(field.Key, field.String)
	case IntegerLogFieldType:
		return zap.Int64(field.Key, field.Integer)
	case FloatLogFieldType:
		return zap.Float64(field.Key, field.Float)
	case BoolLogFieldType:
		return zap.Bool(field.Key, field.Bool)
	case ErrorLogFieldType:
		return zap.Error(field.Err)
	case StringsLogFieldType:
		return zap.Strings(field.Key, field.Strings)
	default:
		return zap.Skip()
	}
}
