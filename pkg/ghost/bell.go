package ghost

import (
	"io"
	"os"
	"time"
)

// Bell stands in for a vibration motor on hosts without one by ringing the
// terminal bell. The pulse length is ignored.
type Bell struct {
	w io.Writer
}

// NewBell returns a bell writing to w, or stderr if w is nil.
func NewBell(w io.Writer) *Bell {
	if w == nil {
		w = os.Stderr
	}
	return &Bell{w: w}
}

// Vibrate rings the bell once.
func (b *Bell) Vibrate(time.Duration) error {
	_, err := io.WriteString(b.w, "\a")
	return err
}
