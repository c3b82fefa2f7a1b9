package fake

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// CheckLog returns a JSON logger and a function that fails the test when none
// of the logged events has the message.
func CheckLog(msg string) (zerolog.Logger, func(t *testing.T)) {
	out := new(bytes.Buffer)

	check := func(t *testing.T) {
		require.Contains(t, out.String(), `"message":`+strconv.Quote(msg))
	}

	return zerolog.New(out), check
}
