package ring

import "testing"

func TestHashWithinSpace(t *testing.T) {
	sp, err := NewSpace(16)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	ips := []struct {
		ip   string
		port uint16
	}{
		{"1.2.3.4", 5}, {"10.0.0.1", 9000}, {"::1", 1}, {"", 0},
	}
	for _, tc := range ips {
		id := sp.Hash(tc.ip, tc.port)
		if uint64(id) >= uint64(1)<<16 {
			t.Errorf("Hash(%q,%d) = %d, out of [0, 2^16)", tc.ip, tc.port, id)
		}
	}
}

func TestHashBitExact(t *testing.T) {
	sp, err := NewSpace(16)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	// SHA-1("1.2.3.4:5") mod 2^16 == 57776.
	if got := sp.Hash("1.2.3.4", 5); got != 57776 {
		t.Errorf("Hash(1.2.3.4, 5) = %d, want 57776", got)
	}
}

func TestInOpenIntervalLinearMatchesNonWrap(t *testing.T) {
	cases := []struct {
		start, end, x ID
		want          bool
	}{
		{10, 20, 15, true},
		{10, 20, 10, false},
		{10, 20, 20, false},
		{10, 20, 5, false},
		{10, 20, 25, false},
	}
	for _, c := range cases {
		if got := InOpenInterval(c.start, c.end, c.x); got != c.want {
			t.Errorf("InOpenInterval(%d,%d,%d) = %v, want %v", c.start, c.end, c.x, got, c.want)
		}
	}
}

func TestInOpenIntervalWrap(t *testing.T) {
	// start > end: wraps through zero.
	if !InOpenInterval(65530, 50, 65535) {
		t.Error("expected 65535 in (65530, 50) wrap-around interval")
	}
	if !InOpenInterval(65530, 50, 10) {
		t.Error("expected 10 in (65530, 50) wrap-around interval")
	}
	if InOpenInterval(65530, 50, 50) {
		t.Error("open interval excludes the end endpoint")
	}
	if InOpenInterval(65530, 50, 65530) {
		t.Error("open interval excludes the start endpoint")
	}
}

func TestInOpenIntervalEmptyWhenEqual(t *testing.T) {
	if InOpenInterval(100, 100, 100) {
		t.Error("(a, a) must always be empty")
	}
	if InOpenInterval(100, 100, 50) {
		t.Error("(a, a) must always be empty")
	}
}

func TestInHalfOpenIntervalWrap(t *testing.T) {
	// self.key=65530, successor.key=50.
	if !InHalfOpenInterval(65530, 50, 65535) {
		t.Error("expected 65535 in (65530, 50]")
	}
	if !InHalfOpenInterval(65530, 50, 50) {
		t.Error("expected 50 in (65530, 50]")
	}
	if InHalfOpenInterval(65530, 50, 51) {
		t.Error("expected 51 not in (65530, 50]")
	}
	if InHalfOpenInterval(65530, 50, 65529) {
		t.Error("expected 65529 not in (65530, 50]")
	}
}

func TestFingerStart(t *testing.T) {
	sp, err := NewSpace(16)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	self := ID(57776)
	if got := sp.FingerStart(self, 0); got != sp.Mod(uint64(self)+1) {
		t.Errorf("FingerStart(0) = %d, want self+1", got)
	}
	if got := sp.FingerStart(self, 15); got != sp.Mod(uint64(self)+(1<<15)) {
		t.Errorf("FingerStart(M-1) = %d, want self+2^15", got)
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	id := ID(12345)
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip = %d, want %d", parsed, id)
	}
}

func TestNewSpaceRejectsInvalidBits(t *testing.T) {
	if _, err := NewSpace(0); err == nil {
		t.Error("expected error for bits=0")
	}
	if _, err := NewSpace(65); err == nil {
		t.Error("expected error for bits=65")
	}
}
