package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out at level, tagged with a fresh
// run_id so the lines of one release run can be grepped together.
func New(out io.Writer, level string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger.WithField("run_id", uuid.NewString()), nil
}
