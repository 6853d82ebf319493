package options

import (
	"fmt"
	"strings"
)

// Sprintf is a dynamic entry formatting the named keys with format.
func Sprintf(format string, keys ...string) Dynamic {
	return func(o *Leaf) (any, error) {
		args := make([]any, len(keys))
		for i, k := range keys {
			v, err := o.Get(k)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fmt.Sprintf(format, args...), nil
	}
}

// Alias is a dynamic entry returning the value of another key, typically
// exposing a lower case key under an upper case template placeholder.
func Alias(key string) Dynamic {
	return func(o *Leaf) (any, error) {
		return o.Get(key)
	}
}

// JoinKeys is a dynamic entry joining the string values of keys with sep,
// skipping empty values.
func JoinKeys(sep string, keys ...string) Dynamic {
	return func(o *Leaf) (any, error) {
		var words []string
		for _, k := range keys {
			s, err := o.String(k)
			if err != nil {
				return nil, err
			}
			if s != "" {
				words = append(words, s)
			}
		}
		return strings.Join(words, sep), nil
	}
}
