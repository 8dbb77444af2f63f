package logger

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	assert := assert.New(t)
	defer SetFilter("")

	out := filterOutput("connection %d from peer", time.Now().UnixNano())
	assert.Contains(out, "peer")

	err := SetFilter("lost")
	assert.Nil(err)
	out = filterOutput("connection %d from peer", time.Now().UnixNano())
	assert.NotContains(out, "peer")
	out = filterOutput("connection %d from peer Lost", time.Now().UnixNano())
	assert.NotContains(out, "peer")
	out = filterOutput("connection %d from peer lost", time.Now().UnixNano())
	assert.Contains(out, "peer")

	err = SetFilter("(?i)lost")
	assert.Nil(err)
	out = filterOutput("connection %d from peer Lost", time.Now().UnixNano())
	assert.Contains(out, "peer")

	err = SetFilter("(")
	assert.NotNil(err)
}

func TestLevelAndLimiter(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(0)
	defer SetLimiter(0)

	SetLevel(INFO)
	Verbosef("hidden")
	Printf("shown %d", 1)
	assert.NotContains(buf.String(), "hidden")
	assert.Contains(buf.String(), "shown 1")

	buf.Reset()
	SetLevel(VERBOSE)
	SetLimiter(2)
	line := fmt.Sprintf("repeated %d", time.Now().UnixNano())
	for i := 0; i < 5; i++ {
		Verbosef("%s", line)
	}
	assert.Equal(2, bytes.Count(buf.Bytes(), []byte(line)))

	buf.Reset()
	SetLevel(ERROR)
	Printf("info")
	Errorf("broken %v", "pipe")
	assert.NotContains(buf.String(), "info")
	assert.Contains(buf.String(), "ERROR broken pipe")
}
