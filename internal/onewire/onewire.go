// Package onewire polls DS18B20 sensors exposed by the Linux w1-therm driver
// under /sys/bus/w1/devices/28-*/w1_slave.
package onewire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/models"

	"github.com/spf13/afero"
)

const (
	DefaultRoot  = "/sys/bus/w1/devices"
	devicePrefix = "28-"
	slaveFile    = "w1_slave"

	// powerOnResetMilliC is what a DS18B20 reports before its first conversion.
	powerOnResetMilliC = 85000
)

var (
	ErrCRC          = errors.New("onewire: crc check failed")
	ErrMalformed    = errors.New("onewire: malformed w1_slave output")
	ErrPowerOnReset = errors.New("onewire: power-on reset value")
)

// Reader polls every DS18B20 found under Root.
type Reader struct {
	fs   afero.Fs
	root string
	log  *logger.Logger
	now  func() time.Time
}

func NewReader(fs afero.Fs, root string, log *logger.Logger) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	return &Reader{fs: fs, root: root, log: log, now: time.Now}
}

// Devices lists sensor ids currently present on the bus.
func (r *Reader) Devices() ([]string, error) {
	matches, err := afero.Glob(r.fs, path.Join(r.root, devicePrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("list w1 devices: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, path.Base(m))
	}
	sort.Strings(ids)
	return ids, nil
}

// PollAll reads every sensor concurrently. Sensors that fail or are still
// being read when ctx expires are left out; the partial list is returned.
func (r *Reader) PollAll(ctx context.Context) ([]models.RawReading, error) {
	ids, err := r.Devices()
	if err != nil {
		return nil, err
	}

	type result struct {
		reading models.RawReading
		err     error
	}
	results := make(chan result, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			temp, err := r.Read(id)
			results <- result{
				reading: models.RawReading{SensorID: id, TemperatureF: temp, Timestamp: r.now()},
				err:     err,
			}
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]models.RawReading, 0, len(ids))
	for {
		select {
		case res, ok := <-results:
			if !ok {
				sortReadings(out)
				return out, nil
			}
			if res.err != nil {
				r.log.Warnw("sensor_read_failed", "sensor_id", res.reading.SensorID, "err", res.err)
				continue
			}
			out = append(out, res.reading)
		case <-ctx.Done():
			r.log.Warnw("sensor_poll_timeout", "read", len(out), "present", len(ids))
			sortReadings(out)
			return out, nil
		}
	}
}

func sortReadings(rs []models.RawReading) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].SensorID < rs[j].SensorID })
}

// Read returns one sensor's temperature in °F.
func (r *Reader) Read(id string) (float64, error) {
	b, err := afero.ReadFile(r.fs, path.Join(r.root, id, slaveFile))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", id, err)
	}
	milliC, err := ParseSlave(string(b))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", id, err)
	}
	return models.CelsiusToFahrenheit(float64(milliC) / 1000), nil
}

// ParseSlave extracts the milli-°C value from w1_slave contents:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func ParseSlave(s string) (int, error) {
	sc := bufio.NewScanner(strings.NewReader(s))
	var lines []string
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return 0, ErrMalformed
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, ErrCRC
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, ErrMalformed
	}
	v, err := strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if v == powerOnResetMilliC {
		return 0, ErrPowerOnReset
	}
	return v, nil
}
