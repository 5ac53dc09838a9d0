package constant

import "time"

const DayKeyLayout = "2006-01-02"

const (
	SequentialMinStart = 1000
	SequentialMaxStart = 9999
)

// CodeLetters excludes I and O, which read as 1 and 0 on a display.
const CodeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	CodeDigits              = 1000
	DefaultCodedMaxAttempts = 100
)

const (
	DefaultTicketExpiry = 2 * time.Hour
	DefaultUpcomingSize = 5
	DefaultPin          = "123456"
	PinLength           = 6
)
