package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/entrycache"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: base.WithField("component", "cache")}

	cause := errors.New("boom")
	l.Warn("cache decode failed; treating as miss", entrycache.Fields{"key": "id:1", "err": cause})

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, e.Level)
	assert.Equal(t, "cache", e.Data["component"])
	assert.Equal(t, "id:1", e.Data["key"])
	assert.Equal(t, cause, e.Data[logrus.ErrorKey])

	l.Info("plain", nil)
	assert.Equal(t, "plain", hook.LastEntry().Message)
}
