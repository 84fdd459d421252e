package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageEnergy(t *testing.T) {
	raw := []byte(`{"type":"client_energy","session_id":"s1","level":42,"ts_ms":100}`)
	got, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage error: %v", err)
	}
	msg, ok := got.(ClientEnergy)
	if !ok {
		t.Fatalf("got %T, want ClientEnergy", got)
	}
	if msg.Level != 42 || msg.SessionID != "s1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseClientMessageRejectsOutOfRangeEnergy(t *testing.T) {
	raw := []byte(`{"type":"client_energy","session_id":"s1","level":300}`)
	if _, err := ParseClientMessage(raw); err == nil {
		t.Fatalf("level above 255 should be rejected")
	}
}

func TestParseClientMessageVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "partial",
			raw:  `{"type":"client_partial","session_id":"s1","text":"eu gos","confidence":0.4}`,
			want: ClientPartial{},
		},
		{
			name: "final",
			raw:  `{"type":"client_final","session_id":"s1","text":"eu gosto de viajar","confidence":0.92}`,
			want: ClientFinal{},
		},
		{
			name: "recognition error",
			raw:  `{"type":"client_recognition_error","session_id":"s1","kind":"no-speech"}`,
			want: ClientRecognitionError{},
		},
		{
			name: "speak ended",
			raw:  `{"type":"client_speak_ended","session_id":"s1","segment_id":"seg-1"}`,
			want: ClientSpeakEnded{},
		},
		{
			name: "typed text",
			raw:  `{"type":"client_text","session_id":"s1","text":"oi"}`,
			want: ClientText{},
		},
		{
			name: "control",
			raw:  `{"type":"client_control","session_id":"s1","action":"start"}`,
			want: ClientControl{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseClientMessage error: %v", err)
			}
			if wantType, gotType := typeName(tt.want), typeName(got); wantType != gotType {
				t.Fatalf("got %s, want %s", gotType, wantType)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case ClientEnergy:
		return "ClientEnergy"
	case ClientPartial:
		return "ClientPartial"
	case ClientFinal:
		return "ClientFinal"
	case ClientRecognitionError:
		return "ClientRecognitionError"
	case ClientSpeakStarted:
		return "ClientSpeakStarted"
	case ClientSpeakBoundary:
		return "ClientSpeakBoundary"
	case ClientSpeakEnded:
		return "ClientSpeakEnded"
	case ClientSpeakError:
		return "ClientSpeakError"
	case ClientText:
		return "ClientText"
	case ClientControl:
		return "ClientControl"
	default:
		return "unknown"
	}
}

func TestParseClientMessageRejectsMissingFields(t *testing.T) {
	bad := []string{
		`{"type":"client_partial"}`,
		`{"type":"client_recognition_error","session_id":"s1"}`,
		`{"type":"client_speak_ended","session_id":"s1"}`,
		`{"type":"client_text","session_id":"s1","text":""}`,
		`{"type":"client_control","session_id":"s1","action":"dance"}`,
	}
	for _, raw := range bad {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("expected rejection for %s", raw)
		}
	}
}

func TestParseClientMessageUnsupportedType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"state_update","session_id":"s1"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("invalid json should fail")
	}
}
