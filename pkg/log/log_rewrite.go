package log

import (
	"go.uber.org/zap"
)

// getSugar returns the global sugared logger, installing the default
// stdout logger when Init was never called.
func getSugar() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}
	MustInit(SetDefaults())
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(args ...interface{}) {
	getSugar().Info(args...)
}

func Infof(format string, args ...interface{}) {
	getSugar().Infof(format, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	getSugar().Infow(msg, keysAndValues...)
}

func Debug(args ...interface{}) {
	getSugar().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	getSugar().Debugf(format, args...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	getSugar().Debugw(msg, keysAndValues...)
}

func Warn(args ...interface{}) {
	getSugar().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	getSugar().Warnf(format, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	getSugar().Warnw(msg, keysAndValues...)
}

func Error(args ...interface{}) {
	getSugar().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	getSugar().Errorf(format, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	getSugar().Errorw(msg, keysAndValues...)
}

func Fatal(args ...interface{}) {
	getSugar().Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	getSugar().Fatalf(format, args...)
}
