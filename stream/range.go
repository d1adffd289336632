package stream

import (
	"fmt"
	"strconv"
	"strings"

	"mediaproxy/store"
)

// ErrUnsatisfiable marks a syntactically valid range that lies entirely
// outside the object, reported to clients as 416.
var ErrUnsatisfiable = fmt.Errorf("range not satisfiable")

// ParseRange turns a Range header value into a byte window over an object of
// the given total size. Supported forms: "bytes=A-B", "bytes=A-" and
// "bytes=-N" (last N bytes). Multi-range headers are honored only for their
// first clause; the rest is ignored. An end past the object is clamped to
// total-1, a start at or past it is unsatisfiable.
//
// Returns (nil, nil) when the header is empty: the caller serves the whole
// object as a 200.
func ParseRange(header string, total int64) (*store.ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	if !strings.HasPrefix(header, "bytes=") {
		return nil, fmt.Errorf("unsupported range unit in %q", header)
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed range %q", header)
	}

	switch {
	case parts[0] != "":
		start, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("malformed range start %q", parts[0])
		}
		end := total - 1
		if parts[1] != "" {
			end, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil || end < start {
				return nil, fmt.Errorf("malformed range end %q", parts[1])
			}
		}
		if start >= total {
			return nil, ErrUnsatisfiable
		}
		if end > total-1 {
			end = total - 1
		}
		return &store.ByteRange{Start: start, End: end}, nil

	case parts[1] != "":
		// bytes=-N: the final N bytes.
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("malformed range suffix %q", parts[1])
		}
		if total == 0 {
			return nil, ErrUnsatisfiable
		}
		if n > total {
			n = total
		}
		return &store.ByteRange{Start: total - n, End: total - 1}, nil
	}
	return nil, fmt.Errorf("malformed range %q", header)
}
