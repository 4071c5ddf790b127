package onewire

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"multizone_thermostat/internal/logger"

	"github.com/spf13/afero"
)

func slave(milliC string, crc string) string {
	return "72 01 4b 46 7f ff 0e 10 57 : crc=57 " + crc + "\n72 01 4b 46 7f ff 0e 10 57 t=" + milliC + "\n"
}

func newTestReader(t *testing.T, files map[string]string) *Reader {
	t.Helper()
	fs := afero.NewMemMapFs()
	for id, body := range files {
		if err := afero.WriteFile(fs, DefaultRoot+"/"+id+"/w1_slave", []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", id, err)
		}
	}
	// Bus master entries are not sensors.
	_ = fs.MkdirAll(DefaultRoot+"/w1_bus_master1", 0o755)

	r := NewReader(fs, "", logger.Nop())
	fixed := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r
}

func TestParseSlave(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr error
	}{
		{"ok", slave("23125", "YES"), 23125, nil},
		{"negative", slave("-1250", "YES"), -1250, nil},
		{"crc", slave("23125", "NO"), 0, ErrCRC},
		{"short", "72 01 : crc=57 YES\n", 0, ErrMalformed},
		{"no value", "a : crc=57 YES\nb\n", 0, ErrMalformed},
		{"reset", slave("85000", "YES"), 0, ErrPowerOnReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlave(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseSlave = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestPollAll_ConvertsAndSkipsBadSensors(t *testing.T) {
	r := newTestReader(t, map[string]string{
		"28-000000000002": slave("20000", "YES"),
		"28-000000000001": slave("25000", "YES"),
		"28-000000000003": slave("21000", "NO"),
	})

	got, err := r.PollAll(context.Background())
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 readings, got %+v", got)
	}
	if got[0].SensorID != "28-000000000001" || math.Abs(got[0].TemperatureF-77) > 1e-9 {
		t.Fatalf("unexpected first reading %+v", got[0])
	}
	if math.Abs(got[1].TemperatureF-68) > 1e-9 || got[1].Timestamp.IsZero() {
		t.Fatalf("unexpected second reading %+v", got[1])
	}
}

func TestPollAll_ExpiredContextReturnsPartial(t *testing.T) {
	r := newTestReader(t, map[string]string{"28-a": slave("20000", "YES")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.PollAll(ctx)
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}
	if len(got) > 1 {
		t.Fatalf("unexpected readings %+v", got)
	}
}

func TestDevices_EmptyBus(t *testing.T) {
	r := NewReader(afero.NewMemMapFs(), "/nowhere", logger.Nop())
	ids, err := r.Devices()
	if err != nil || len(ids) != 0 {
		t.Fatalf("Devices = %v, %v", ids, err)
	}
}
