package sink

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"verify-ovpn/internal/model"
)

type Sink interface {
	RecordSuccess(outcome model.Outcome) error
	Finish(tally model.Tally) error
}

// TextWriter writes one verified config name per line.
type TextWriter struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

func NewText(path string) (*TextWriter, error) {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &TextWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

func (w *TextWriter) RecordSuccess(o model.Outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.buf.WriteString(o.Config + "\n")
	return err
}

// Finish flushes buffered lines and syncs the file to disk.
func (w *TextWriter) Finish(model.Tally) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *TextWriter) Close() error { return w.file.Close() }

// CountryLookup maps an endpoint to a country code.
type CountryLookup interface {
	Country(endpoint string) string
}

var csvHeader = []string{"config", "protocol", "endpoint", "country", "duration_ms"}

// CSVWriter writes a report row per verified config.
type CSVWriter struct {
	file    *os.File
	w       *csv.Writer
	country CountryLookup
	mu      sync.Mutex
}

// NewCSV creates the report file and writes its header. country may be nil.
func NewCSV(path string, country CountryLookup) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVWriter{file: f, w: w, country: country}, nil
}

func (c *CSVWriter) RecordSuccess(o model.Outcome) error {
	country := ""
	if c.country != nil {
		country = c.country.Country(o.Target.Endpoint)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write([]string{
		o.Config,
		string(o.Target.Protocol),
		o.Target.Endpoint,
		country,
		strconv.FormatInt(o.Duration.Milliseconds(), 10),
	})
}

func (c *CSVWriter) Finish(model.Tally) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.file.Sync()
}

func (c *CSVWriter) Close() error { return c.file.Close() }

// Multi forwards every call to each sink and joins their errors.
type Multi []Sink

func (m Multi) RecordSuccess(o model.Outcome) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordSuccess(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Finish(t model.Tally) error {
	var errs []error
	for _, s := range m {
		if err := s.Finish(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
