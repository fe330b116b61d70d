// Package transport implements the wire protocol: a
// line-oriented, colon-delimited ASCII request/reply exchange over a single
// TCP connection per request, plus the listener and dialer that carry it.
package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacklowrie/chordnet/internal/ring"
)

// NilSentinel is the wire value reserved for "no address".
const NilSentinel = "nil"

// MaxMessageSize is the reference limit on a single request or reply line.
const MaxMessageSize = 1024

// Address is the stable identity of a node: its advertised ip/port and the
// identifier derived from them. Addresses are value objects —
// copy freely, never mutate Key on an existing value.
type Address struct {
	IP   string
	Port uint16
	Key  ring.ID
}

// NewAddress derives an Address's Key from (ip, port) under the given space.
func NewAddress(sp ring.Space, ip string, port uint16) Address {
	return Address{IP: ip, Port: port, Key: sp.Hash(ip, port)}
}

// Equal reports whether two addresses have identical (ip, port, key).
func (a Address) Equal(b Address) bool {
	return a.IP == b.IP && a.Port == b.Port && a.Key == b.Key
}

// Serialize renders the address as "<key>:<ip>:<port>".
func (a Address) Serialize() string {
	return fmt.Sprintf("%s:%s:%d", a.Key.String(), a.IP, a.Port)
}

// ParseAddress parses the wire form of an address. "nil" parses to the zero
// value with ok=false, signalling "no address" rather than an error — this
// is the one sentinel the wire format reserves.
func ParseAddress(s string) (addr Address, ok bool, err error) {
	if s == NilSentinel {
		return Address{}, false, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Address{}, false, fmt.Errorf("transport: malformed address %q: expected 3 colon-delimited parts", s)
	}
	for _, p := range parts {
		if p == "" {
			return Address{}, false, fmt.Errorf("transport: malformed address %q: empty field", s)
		}
	}
	key, err := ring.ParseID(parts[0])
	if err != nil {
		return Address{}, false, fmt.Errorf("transport: malformed address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return Address{}, false, fmt.Errorf("transport: malformed address %q: invalid port: %w", s, err)
	}
	return Address{IP: parts[1], Port: uint16(port), Key: key}, true, nil
}

// HostPort returns the "ip:port" dial target for this address.
func (a Address) HostPort() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}
