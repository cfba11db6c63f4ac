package message

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeAccess(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Access
		wantErr error
	}{
		{
			name:    "authorized",
			payload: `{"type":"access","authorized":true,"user":"Alice","timestamp":"2026-03-02T09:00:00"}`,
			want:    Access{Type: "access", Authorized: true, User: "Alice", Timestamp: "2026-03-02T09:00:00"},
		},
		{
			name:    "unauthorized without user",
			payload: `{"type":"access","authorized":false}`,
			want:    Access{Type: "access", Authorized: false, User: UnknownUser},
		},
		{
			name:    "authorized without user",
			payload: `{"type":"access","authorized":true}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "missing authorized",
			payload: `{"type":"access","user":"Alice"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "missing type",
			payload: `{"authorized":true,"user":"Alice"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "other type",
			payload: `{"type":"heartbeat"}`,
			wantErr: ErrIgnored,
		},
		{
			name:    "invalid json",
			payload: `{"type":`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "wrong field type",
			payload: `{"type":"access","authorized":"yes","user":"Alice"}`,
			wantErr: ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAccess([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeAccess() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAccess() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeAccess() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeControl(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Control
		wantErr error
	}{
		{
			name:    "unlock from admin",
			payload: `{"command":"unlock","source":"admin","timestamp":"t"}`,
			want:    Control{Command: CommandUnlock, Source: SourceAdmin, Timestamp: "t"},
		},
		{
			name:    "auto relock without source",
			payload: `{"command":"auto_relock"}`,
			want:    Control{Command: CommandAutoRelock},
		},
		{
			name:    "unknown command",
			payload: `{"command":"open_sesame","source":"admin"}`,
			wantErr: ErrUnknownCommand,
		},
		{
			name:    "missing command",
			payload: `{"source":"admin"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "not an object",
			payload: `"unlock"`,
			wantErr: ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeControl([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeControl() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeControl() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeControl() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnknownCommandIsMalformed(t *testing.T) {
	if !errors.Is(ErrUnknownCommand, ErrMalformedMessage) {
		t.Error("ErrUnknownCommand should wrap ErrMalformedMessage")
	}
}

func TestDecodeSystemLog(t *testing.T) {
	got, err := DecodeSystemLog([]byte(`{"type":"log","message":"User: Bob registered"}`))
	if err != nil {
		t.Fatalf("DecodeSystemLog() error = %v", err)
	}
	if got.Message != "User: Bob registered" {
		t.Errorf("Message = %q", got.Message)
	}

	if _, err := DecodeSystemLog([]byte(`{"type":"metric","value":1}`)); !errors.Is(err, ErrIgnored) {
		t.Errorf("non-log entry: error = %v, want ErrIgnored", err)
	}
	if _, err := DecodeSystemLog([]byte(`{"type":"log"}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("missing message: error = %v, want ErrMalformedMessage", err)
	}
}

func TestDecodeDeviceInfo(t *testing.T) {
	got, err := DecodeDeviceInfo([]byte(`{"type":"door","ip":"192.168.1.40","timestamp":"t"}`))
	if err != nil {
		t.Fatalf("DecodeDeviceInfo() error = %v", err)
	}
	if got.IP != "192.168.1.40" {
		t.Errorf("IP = %q", got.IP)
	}

	if _, err := DecodeDeviceInfo([]byte(`{"type":"camera","ip":"x"}`)); !errors.Is(err, ErrIgnored) {
		t.Errorf("camera: error = %v, want ErrIgnored", err)
	}
	if _, err := DecodeDeviceInfo([]byte(`{"type":"door"}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("missing ip: error = %v, want ErrMalformedMessage", err)
	}
}

func TestDecodeVoiceCommand(t *testing.T) {
	got, err := DecodeVoiceCommand([]byte(`{"action":"start_voice_comm","ip":"10.0.0.2","admin_ip":"10.0.0.3"}`))
	if err != nil {
		t.Fatalf("DecodeVoiceCommand() error = %v", err)
	}
	want := VoiceCommand{Action: VoiceStart, IP: "10.0.0.2", AdminIP: "10.0.0.3"}
	if got != want {
		t.Errorf("DecodeVoiceCommand() = %+v, want %+v", got, want)
	}

	if _, err := DecodeVoiceCommand([]byte(`{"action":"mute"}`)); !errors.Is(err, ErrIgnored) {
		t.Errorf("unknown action: error = %v, want ErrIgnored", err)
	}
	if _, err := DecodeVoiceCommand([]byte(`{}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("missing action: error = %v, want ErrMalformedMessage", err)
	}
}

func TestConstructors(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)

	ev := NewEvent("Alice", StatusGranted, at)
	if ev.Timestamp != "2026-03-02 09:00:05" {
		t.Errorf("Event timestamp = %q", ev.Timestamp)
	}

	denied := NewAdminAction(DecisionDenied, at)
	if denied.Message != DeniedByAdmin {
		t.Errorf("denied message = %q", denied.Message)
	}
	allowed := NewAdminAction(DecisionAllowed, at)
	if allowed.Message != AllowedByAdmin {
		t.Errorf("allowed message = %q", allowed.Message)
	}

	acc := NewAccess("Mallory", false, at)
	if acc.User != UnknownUser || acc.Authorized {
		t.Errorf("unauthorized access = %+v, want Unknown user", acc)
	}

	data, err := Encode(NewControl(CommandAutoRelock, SourceSystem, at))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("control payload not JSON: %v", err)
	}
	if raw["command"] != "auto_relock" || raw["source"] != "system" {
		t.Errorf("control payload = %v", raw)
	}

	// Decoding our own control round trips.
	back, err := DecodeControl(data)
	if err != nil || back.Command != CommandAutoRelock {
		t.Errorf("DecodeControl(own payload) = %+v, %v", back, err)
	}
}

func TestDecodeEventAndAdminAction(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)

	data, _ := Encode(NewEvent("Alice", StatusGranted, at))
	ev, err := DecodeEvent(data)
	if err != nil || ev.Name != "Alice" || ev.Status != StatusGranted {
		t.Errorf("DecodeEvent() = %+v, %v", ev, err)
	}
	if _, err := DecodeEvent([]byte(`{"status":"granted"}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("event without name: error = %v", err)
	}

	data, _ = Encode(NewAdminAction(DecisionDenied, at))
	act, err := DecodeAdminAction(data)
	if err != nil || act.Message != DeniedByAdmin {
		t.Errorf("DecodeAdminAction() = %+v, %v", act, err)
	}
	for _, bad := range []string{`{}`, `{"action":"maybe"}`, `[]`} {
		if _, err := DecodeAdminAction([]byte(bad)); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("DecodeAdminAction(%s) error = %v, want ErrMalformedMessage", bad, err)
		}
	}
}
