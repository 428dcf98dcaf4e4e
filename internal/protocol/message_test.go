package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessageEncodeDecode(t *testing.T) {
	msg := New(ClientPlay).
		SetInts("cards", []int32{12, 25, 53}).
		SetString("note", "tractor").
		SetInt("order", 2)

	payload, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got.Code != ClientPlay {
		t.Errorf("code = %v, want %v", got.Code, ClientPlay)
	}
	cards, err := got.GetInts("cards")
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 3 || cards[0] != 12 || cards[2] != 53 {
		t.Errorf("cards = %v", cards)
	}
	if note, _ := got.GetString("note"); note != "tractor" {
		t.Errorf("note = %q", note)
	}
	if order, _ := got.GetInt("order"); order != 2 {
		t.Errorf("order = %d", order)
	}
}

func TestMessageMalformedFields(t *testing.T) {
	msg := New(ClientCall).SetString("reason", "x").SetInt("order", 1)

	tests := []struct {
		name string
		get  func(*Message) error
	}{
		{name: "Missing field", get: func(m *Message) error {
			_, err := m.GetInt("card")
			return err
		}},
		{name: "Wrong type scalar", get: func(m *Message) error {
			_, err := m.GetInt("reason")
			return err
		}},
		{name: "Wrong type list", get: func(m *Message) error {
			_, err := m.GetInts("order")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.get(msg)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x01, 0x02}); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
	// A valid empty struct has no code field.
	if _, err := Decode(nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{7}, 1000)}
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatal(err)
		}
	}
	for i, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %v, want %v", i, got, want)
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, MaxFrameSize+1)); err == nil {
		t.Error("oversized write accepted")
	}
	buf.Reset()
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadFrame(&buf); err == nil {
		t.Error("oversized read accepted")
	}
}
