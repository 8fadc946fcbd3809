package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewLogger("debug", "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())

		log.Debugf("Scanning %s", "/plugins")
		assert.Contains(t, buf.String(), "Scanning /plugins")
		assert.Contains(t, buf.String(), "level=debug")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewLogger("warn", "json", &buf)
		require.NoError(t, err)

		log.Info("dropped")
		log.WithField("module", "/p/a.ofx").Warn("skipped")
		assert.NotContains(t, buf.String(), "dropped")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "skipped", entry["msg"])
		assert.Equal(t, "/p/a.ofx", entry["module"])
		assert.Equal(t, "warning", entry["level"])
	})

	t.Run("defaults", func(t *testing.T) {
		log, err := NewLogger("", "", nil)
		require.NoError(t, err)
		assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger("chatty", "text", nil)
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := NewLogger("info", "xml", nil)
		assert.Error(t, err)
	})
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("info", "json", &buf)
	require.NoError(t, err)

	func() {
		defer RecoverPanic(log, "describe")
		panic("boom")
	}()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "PANIC recovered", entry["msg"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Equal(t, "describe", entry["context"])
	assert.NotEmpty(t, entry["stack"])
}

func TestRecoverPanicWithCallback(t *testing.T) {
	log, err := NewLogger("info", "text", &bytes.Buffer{})
	require.NoError(t, err)

	called := false
	func() {
		defer RecoverPanicWithCallback(log, "worker", func() { called = true })
		panic(errors.New("worker failed"))
	}()
	assert.True(t, called)

	called = false
	func() {
		defer RecoverPanicWithCallback(log, "worker", func() { called = true })
	}()
	assert.False(t, called)
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad index"), "panic: bad index")

	rescan := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = MustRecover(r)
			}
		}()
		panic("nil module")
	}
	assert.EqualError(t, rescan(), "panic: nil module")
}
