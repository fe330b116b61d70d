package transport

import (
	"fmt"
	"strings"
)

// Method names the five inbound RPCs the dispatcher supports.
type Method string

const (
	Ping            Method = "PING"
	FindSuccessor   Method = "FIND_SUCCESSOR"
	GetPredecessor  Method = "GET_PREDECESSOR"
	Notify          Method = "NOTIFY"
	TraceSuccessor  Method = "TRACE_SUCCESSOR"
)

// Reply sentinels used by the inbound handler.
const (
	ReplyAlive          = "ALIVE"
	ReplyOK             = "OK"
	ReplyIgnored        = "IGNORED"
	ReplyInvalidNode    = "INVALID_NODE"
	ReplyInvalidMethod  = "INVALID_METHOD"
	ReplyTraceErrPrefix = "ERROR:Invalid TRACE_SUCCESSOR Request"
)

// Request is a decoded "<METHOD>:<arg1>:<arg2>:..." line.
type Request struct {
	Method Method
	Args   []string
}

// EncodeRequest serializes a request. With no arguments the wire form keeps
// the trailing colon ("<METHOD>:").
func EncodeRequest(method Method, args ...string) string {
	var b strings.Builder
	b.WriteString(string(method))
	b.WriteByte(':')
	b.WriteString(strings.Join(args, ":"))
	return b.String()
}

// DecodeRequest parses a raw request line into method + args.
func DecodeRequest(line string) (Request, error) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return Request{}, fmt.Errorf("transport: malformed request %q: missing ':'", line)
	}
	method := Method(line[:idx])
	rest := line[idx+1:]
	var args []string
	if rest != "" {
		args = strings.Split(rest, ":")
	}
	return Request{Method: method, Args: args}, nil
}
