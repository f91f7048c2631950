package ticket

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	expires := issued.Add(2 * time.Hour)

	cases := []struct {
		name   string
		ticket *Ticket
	}{
		{
			name:   "empty ticket",
			ticket: &Ticket{},
		},
		{
			name: "full ticket",
			ticket: &Ticket{
				Scheme: "cookies",
				Claims: []Claim{
					{Type: ClaimUserID, Value: "42"},
					{Type: ClaimName, Value: "alice"},
					{Type: ClaimOrigin, Value: "test-agent"},
				},
				Properties: Properties{
					IssuedAt:     ptrTime(issued),
					ExpiresAt:    ptrTime(expires),
					IsPersistent: true,
					AllowRefresh: true,
				},
			},
		},
		{
			name: "duplicate claim types survive as a multiset",
			ticket: &Ticket{
				Scheme: "cookies",
				Claims: []Claim{
					{Type: ClaimUserID, Value: "7"},
					{Type: ClaimRole, Value: "admin"},
					{Type: ClaimRole, Value: "auditor"},
					{Type: ClaimRole, Value: "admin"},
				},
			},
		},
		{
			name: "empty claim values",
			ticket: &Ticket{
				Scheme: "",
				Claims: []Claim{{Type: "", Value: ""}, {Type: ClaimUserID, Value: ""}},
			},
		},
		{
			name: "expiry without issued at",
			ticket: &Ticket{
				Scheme:     "bearer",
				Claims:     []Claim{{Type: ClaimUserID, Value: "9"}},
				Properties: Properties{ExpiresAt: ptrTime(expires)},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.ticket)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, tc.ticket) {
				t.Fatalf("round trip mismatch:\n  in:  %+v\n  out: %+v", tc.ticket, decoded)
			}
		})
	}
}

func TestEncodeDecodeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	randomString := func(max int) string {
		b := make([]byte, rng.Intn(max))
		for i := range b {
			b[i] = byte(rng.Intn(256))
		}
		return string(b)
	}

	for i := 0; i < 200; i++ {
		in := &Ticket{Scheme: randomString(64)}
		for j := rng.Intn(8); j > 0; j-- {
			in.Claims = append(in.Claims, Claim{Type: randomString(32), Value: randomString(128)})
		}
		if rng.Intn(2) == 1 {
			in.Properties.IssuedAt = ptrTime(time.Unix(0, rng.Int63()).UTC())
		}
		if rng.Intn(2) == 1 {
			in.Properties.ExpiresAt = ptrTime(time.Unix(0, rng.Int63()).UTC())
		}
		in.Properties.IsPersistent = rng.Intn(2) == 1
		in.Properties.AllowRefresh = rng.Intn(2) == 1

		encoded, err := Encode(in)
		if err != nil {
			t.Fatalf("iteration %d: encode: %v", i, err)
		}
		out, err := Decode(encoded)
		if err != nil {
			t.Fatalf("iteration %d: decode: %v", i, err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Fatalf("iteration %d: round trip mismatch:\n  in:  %+v\n  out: %+v", i, in, out)
		}
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	valid, err := Encode(&Ticket{
		Scheme: "cookies",
		Claims: []Claim{{Type: ClaimUserID, Value: "42"}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown version", append([]byte{99}, valid[1:]...)},
		{"truncated header", valid[:2]},
		{"truncated claims", valid[:len(valid)-3]},
		{"trailing garbage", append(append([]byte{}, valid...), 0xDE, 0xAD)},
		{"claim count past end", []byte{1, 0, 0, 0, 0xFF, 0xFF}},
		{"string length past end", []byte{1, 0xFF, 0xFF, 'x'}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.data); !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestEncodeRejectsOversizedStrings(t *testing.T) {
	long := strings.Repeat("a", maxStringLen+1)

	if _, err := Encode(&Ticket{Scheme: long}); err == nil {
		t.Fatal("expected error for oversized scheme")
	}
	if _, err := Encode(&Ticket{Claims: []Claim{{Type: long}}}); err == nil {
		t.Fatal("expected error for oversized claim type")
	}
	if _, err := Encode(&Ticket{Claims: []Claim{{Type: "t", Value: long}}}); err == nil {
		t.Fatal("expected error for oversized claim value")
	}
}
