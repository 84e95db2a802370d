package callback

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

const (
	// MaxTokenLen is the Telegram callback_data ceiling in bytes.
	MaxTokenLen = 64

	sep = ":"
)

// Encode renders an action as a token. It fails when an argument does not fit
// an unsigned 32-bit integer or the token would exceed MaxTokenLen.
func Encode(a Action) (string, error) {
	var b strings.Builder
	b.WriteString(a.tag())
	for _, v := range a.args() {
		if v > uint64(^uint32(0)) {
			return "", fmt.Errorf("callback: encode %s: argument %d out of range", a.tag(), v)
		}
		b.WriteString(sep)
		b.WriteString(strconv.FormatUint(v, 10))
	}
	if b.Len() > MaxTokenLen {
		return "", fmt.Errorf("callback: encode %s: token is %d bytes, limit %d", a.tag(), b.Len(), MaxTokenLen)
	}
	return b.String(), nil
}

// MustEncode is Encode for actions built from in-range values. A negative
// index or amount is a programming error.
func MustEncode(a Action) string {
	tok, err := Encode(a)
	if err != nil {
		panic(err)
	}
	return tok
}

// Decode parses a token into an action. Any deviation from the tag's arity or
// an argument that is not a base-10 uint32 yields domain.ErrMalformedToken.
func Decode(token string) (Action, error) {
	if token == "" || len(token) > MaxTokenLen {
		return nil, fmt.Errorf("callback: decode %q: %w", token, domain.ErrMalformedToken)
	}
	parts := strings.Split(token, sep)
	d, ok := decoders[parts[0]]
	if !ok {
		return nil, fmt.Errorf("callback: decode %q: unknown tag: %w", token, domain.ErrMalformedToken)
	}
	if len(parts)-1 != d.arity {
		return nil, fmt.Errorf("callback: decode %q: want %d arguments, got %d: %w",
			token, d.arity, len(parts)-1, domain.ErrMalformedToken)
	}

	args := make([]uint32, d.arity)
	for i, p := range parts[1:] {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("callback: decode %q: %w", token, domain.ErrMalformedToken)
		}
		args[i] = uint32(v)
	}

	a, ok := d.build(args)
	if !ok {
		return nil, fmt.Errorf("callback: decode %q: invalid argument: %w", token, domain.ErrMalformedToken)
	}
	return a, nil
}

// Name returns the tag of a, for logging and metrics.
func Name(a Action) string { return a.tag() }
