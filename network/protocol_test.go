package network

import (
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Encode(EvControllerJoin, JoinRequest{RoomCode: "QX7T", DisplayName: "alice"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.E != EvControllerJoin {
		t.Errorf("event = %q, want %q", env.E, EvControllerJoin)
	}
	if len(env.D) == 0 {
		t.Error("payload missing from envelope")
	}
}

func TestEncode_NilPayloadOmitsData(t *testing.T) {
	data, err := Encode(EvHostCreate, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(data) != `{"e":"host:create"}` {
		t.Errorf("unexpected wire form: %s", data)
	}
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`not json`)); err == nil {
		t.Error("garbage frame should not decode")
	}
	if _, err := DecodeEnvelope([]byte(`{"d":{}}`)); err != ErrInvalidPayload {
		t.Errorf("missing event name returned %v, want ErrInvalidPayload", err)
	}
}

func TestJoinRequest_Validate(t *testing.T) {
	ok := JoinRequest{RoomCode: "QX7T"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	for _, code := range []string{"", "QX7", "QX7T5"} {
		bad := JoinRequest{RoomCode: code}
		if err := bad.Validate(); err != ErrInvalidPayload {
			t.Errorf("code %q returned %v, want ErrInvalidPayload", code, err)
		}
	}
}

func TestInputPayload_Validate(t *testing.T) {
	cases := []struct {
		name string
		in   InputPayload
		ok   bool
	}{
		{"typical sample", InputPayload{T: 100, AX: 127, Buttons: 1}, true},
		{"all zero", InputPayload{}, true},
		{"full masks", InputPayload{Buttons: 0xffff, Pressed: 0xffff, Released: 0xffff}, true},
		{"negative timestamp", InputPayload{T: -1}, false},
		{"axis overflow", InputPayload{AX: 128}, false},
		{"axis underflow", InputPayload{AY: -128}, false},
		{"mask overflow", InputPayload{Buttons: 0x10000}, false},
		{"negative mask", InputPayload{Pressed: -1}, false},
	}
	for _, c := range cases {
		err := c.in.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: rejected valid payload: %v", c.name, err)
		}
		if !c.ok && err != ErrInvalidPayload {
			t.Errorf("%s: got %v, want ErrInvalidPayload", c.name, err)
		}
	}
}
