package lander

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var telemetryHeader = []string{
	"time", "altitude", "climb_speed", "ground_speed", "surface_ground_speed", "speed",
	"x", "y", "z", "vx", "vy", "vz", "fuel", "throttle", "density", "parachute", "terminal",
}

// TelemetryWriter writes one CSV record per tick.
type TelemetryWriter struct {
	w      *csv.Writer
	closer io.Closer
	rows   int
}

// NewTelemetryWriter returns a CSV telemetry writer on w. The header is preceded by a
// comment line with the creation date and the scenario name.
func NewTelemetryWriter(w io.Writer, scenario string) (*TelemetryWriter, error) {
	if _, err := fmt.Fprintf(w, "# Creation date (UTC): %s\n# Scenario: %s\n", time.Now().UTC(), scenario); err != nil {
		return nil, err
	}
	tw := &TelemetryWriter{w: csv.NewWriter(w)}
	if err := tw.w.Write(telemetryHeader); err != nil {
		return nil, err
	}
	return tw, nil
}

// CreateTelemetryFile creates (or truncates) the file at path and returns a writer on it.
func CreateTelemetryFile(path, scenario string) (*TelemetryWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tw, err := NewTelemetryWriter(f, scenario)
	if err != nil {
		f.Close()
		return nil, err
	}
	tw.closer = f
	return tw, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Write appends the record of a tick.
func (tw *TelemetryWriter) Write(res TickResult) error {
	s, tel := res.State, res.Telemetry
	record := []string{
		formatFloat(s.Time), formatFloat(tel.Altitude), formatFloat(tel.ClimbSpeed),
		formatFloat(tel.GroundSpeed), formatFloat(tel.SurfaceGroundSpeed), formatFloat(tel.Speed),
		formatFloat(s.Position.X), formatFloat(s.Position.Y), formatFloat(s.Position.Z),
		formatFloat(s.Velocity.X), formatFloat(s.Velocity.Y), formatFloat(s.Velocity.Z),
		formatFloat(s.Fuel), formatFloat(s.Throttle), formatFloat(tel.Density),
		res.Parachute.String(), res.Terminal.String(),
	}
	tw.rows++
	return tw.w.Write(record)
}

// Rows returns the number of records written.
func (tw *TelemetryWriter) Rows() int {
	return tw.rows
}

// Flush flushes the buffered records.
func (tw *TelemetryWriter) Flush() error {
	tw.w.Flush()
	return tw.w.Error()
}

// Close flushes the records and closes the underlying file, if any.
func (tw *TelemetryWriter) Close() error {
	err := tw.Flush()
	if tw.closer != nil {
		if cerr := tw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StreamResults writes every result received on results until the channel is closed, then
// closes tw. The channel is drained even after a write error, which is returned at the end.
func StreamResults(tw *TelemetryWriter, results <-chan TickResult) error {
	var err error
	for res := range results {
		if err == nil {
			err = tw.Write(res)
		}
	}
	if cerr := tw.Close(); err == nil {
		err = cerr
	}
	return err
}
