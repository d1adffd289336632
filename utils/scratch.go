package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScratchName builds a scratch file name unique across concurrent jobs:
// prefix, nanosecond timestamp, random suffix, extension.
func ScratchName(prefix, ext string) string {
	return fmt.Sprintf("%s_%d_%s%s", prefix, time.Now().UnixNano(), uuid.NewString()[:8], ext)
}
