package repository

import (
	"io"

	"github.com/sirupsen/logrus"
)

func quiet() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
