package options

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseSlice converts slice phrases into a half open index range over max items:
//
//	":"   = full range, from 0 to max
//	"end" = last index, from max-1 to max
//	"N"   = single index, from N to N+1
//	"N:"  = from N to max
//	":N"  = from 0 to N
//	"M:N" = from M to N
//
// Negative indices count back from max.
func ParseSlice(spec string, max int) (i1, i2 int, err error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "end":
		i1, i2 = max-1, max
	case ":", "":
		i1, i2 = 0, max
	default:
		if i1, i2, err = parseRange(spec, max); err != nil {
			return
		}
	}
	if i1 < 0 || i2 > max || i1 > i2 {
		err = errors.Errorf("slice %q out of range for %d items", spec, max)
	}
	return
}

func parseRange(spec string, max int) (i1, i2 int, err error) {
	var (
		splits = strings.Split(spec, ":")
	)
	if len(splits) > 2 {
		return 0, 0, errors.Errorf("invalid slice %q", spec)
	}
	if i1, err = parseIndex(splits[0], 0, max); err != nil {
		return
	}
	if len(splits) == 1 {
		i2 = i1 + 1
		return
	}
	i2, err = parseIndex(splits[1], max, max)
	return
}

func parseIndex(s string, def, max int) (i int, err error) {
	if s = strings.TrimSpace(s); s == "" {
		return def, nil
	}
	if i, err = strconv.Atoi(s); err != nil {
		return 0, errors.Wrapf(err, "invalid slice index %q", s)
	}
	if i < 0 {
		i += max
	}
	return
}
