package constant

import "time"

// Logical store paths.
const (
	PathMeta           = "meta"
	PathCurrentServing = "meta/currentServing"
	PathDate           = "meta/date"
	PathNextNumber     = "meta/nextNumber"
	PathQueue          = "queue"
	PathUsedNumbers    = "usedNumbers"
	PathRollovers      = "rollovers"
	PathPinHash        = "settings/pinHash"
)

const (
	MetaFieldDate           = "date"
	MetaFieldCurrentServing = "currentServing"
	MetaFieldScheme         = "scheme"
	MetaFieldStartNumber    = "startNumber"
	MetaFieldNextNumber     = "nextNumber"
)

const (
	DefaultRedisPrefix = "ticketer"
	WatchTxMaxRetries  = 3
)

const (
	DefaultRolloverWait = 3 * time.Second
)
