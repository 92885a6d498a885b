package tcp

import (
	"io"
	"log"
	"strings"

	"github.com/shopspring/decimal"
)

// Response frames reused across handlers. A response is one write of one or
// more NUL-separated segments; clients split on NUL and print each segment.
const (
	frameOK             = "200 OK"
	frameInvalidCommand = "400 Invalid command"
	frameInvalidAmount  = "400 Invalid amount"
	frameFormatError    = "400 Message format error"
	frameNotPermitted   = "403 You are not permitted to use this command"
	frameUserNotFound   = "403 User not found"
	frameInternalError  = "500 Internal Server Error"

	frameLoginHint = "400 command not found, please log in with LOGIN username password"
	frameLoginBad  = "403 Wrong UserID or Password"
)

// send writes the segments as a single NUL-framed response. Write failures
// are logged, not returned; the subsequent read surfaces the broken
// connection to the state machine.
func send(w io.Writer, segments ...string) {
	if _, err := w.Write([]byte(strings.Join(segments, "\x00"))); err != nil {
		log.Printf("[tcp] response write failed: %v", err)
	}
}

// received echoes the command line back in the conventional first segment.
func received(line string) string {
	return "s: Received: " + line
}

// money renders a decimal amount as $X.XX
func money(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
