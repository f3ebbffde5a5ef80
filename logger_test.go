package aqua

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerDebugRequiresEnabledCategory(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(false)
	logger.SetOutput(&out)

	logger.DebugCat(CatSched, "hidden")
	assert.Empty(t, out.String())

	logger.SetEnabled(true)
	logger.DebugCat(CatSched, "still hidden")
	assert.Empty(t, out.String())

	logger.EnableCategory(CatSched)
	logger.DebugCat(CatSched, "shown %d", 1)
	assert.Equal(t, "[DEBUG:sched] shown 1\n", out.String())

	out.Reset()
	logger.DisableCategory(CatSched)
	logger.DebugCat(CatSched, "hidden again")
	assert.Empty(t, out.String())
}

func TestLoggerUncategorizedDebugNeedsOnlyEnable(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(true)
	logger.SetOutput(&out)

	logger.Debug("plain")
	assert.Equal(t, "[DEBUG] plain\n", out.String())
}

func TestLoggerWarningsAlwaysShown(t *testing.T) {
	var errOut bytes.Buffer
	logger := NewLogger(false)
	logger.SetErrorOutput(&errOut)

	logger.Warn("careful")
	logger.ErrorCat(CatGC, "broken")
	logger.Notice("note")

	assert.Contains(t, errOut.String(), "[aqua WARN] careful")
	assert.Contains(t, errOut.String(), "[aqua:gc ERROR] broken")
	assert.Contains(t, errOut.String(), "[aqua NOTICE] note")
}

func TestLoggerEnableAllCategories(t *testing.T) {
	logger := NewLogger(true)
	logger.EnableAllCategories()
	for _, cat := range []LogCategory{CatSched, CatFiber, CatChannel, CatGC, CatLex, CatRuntime} {
		assert.True(t, logger.IsCategoryEnabled(cat))
	}
}
