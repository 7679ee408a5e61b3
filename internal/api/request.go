package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/binance-beast/internal/auth"
)

// SignMode selects how a request's parameters are authenticated.
type SignMode int

const (
	// Unsigned requests send parameters as-is.
	Unsigned SignMode = iota
	// HMACSHA256 requests append a timestamp and an HMAC-SHA256 signature.
	HMACSHA256
)

func (m SignMode) String() string {
	switch m {
	case Unsigned:
		return "unsigned"
	case HMACSHA256:
		return "hmac_sha256"
	default:
		return "SignMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters. Order is preserved on the
// wire and is therefore part of what gets signed.
type Params []Param

// Add appends a parameter and returns the extended list.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Get returns the first value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode serializes the parameters as key=value pairs joined by '&', in
// insertion order. Values are written verbatim.
func (p Params) Encode() string {
	var sb strings.Builder
	p.writeTo(&sb)
	return sb.String()
}

func (p Params) writeTo(sb *strings.Builder) {
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(kv.Key)
		sb.WriteByte('=')
		sb.WriteString(kv.Value)
	}
}

// BuildPath returns the request target for path and params.
//
// Empty params yield path unchanged. Unsigned requests yield
// path?k1=v1&k2=v2. Signed requests yield
// path?k1=v1&...&timestamp=<ms>&signature=<hex>, where the signature covers
// everything between '?' and "&signature".
func BuildPath(path string, params Params, mode SignMode, creds auth.Credentials, now time.Time) (string, error) {
	if len(params) == 0 {
		return path, nil
	}

	var sb strings.Builder
	params.writeTo(&sb)

	if mode != HMACSHA256 {
		return path + "?" + sb.String(), nil
	}

	sb.WriteString("&timestamp=")
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	unsigned := sb.String()

	signature, err := creds.Sign(unsigned)
	if err != nil {
		return "", err
	}

	return path + "?" + unsigned + "&signature=" + signature, nil
}
