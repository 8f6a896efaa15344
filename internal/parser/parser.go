package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/vitals-cli/internal/dates"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Source is one uploaded file after decoding. It is either CSVText or
// SheetRows.
type Source interface {
	Name() string
	extract(p *pipeline) (brand string, records []vitals.Record, err error)
}

// Options controls a single parse.
type Options struct {
	// Layout applies to CSV text only.
	Layout     Layout
	Normalizer *dates.Normalizer
	Logger     *slog.Logger
}

// DefaultOptions uses the adjacent CSV layout and the default normalizer.
func DefaultOptions() Options {
	return Options{Layout: LayoutAdjacent}
}

// Rejection records why one candidate row was dropped.
type Rejection struct {
	Line   int    `json:"line"`
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// MaxRejections caps the rejections kept in Diagnostics; the counter keeps
// counting past it.
const MaxRejections = 100

// Diagnostics summarizes row acceptance for one parse.
type Diagnostics struct {
	Accepted   int         `json:"accepted"`
	Rejected   int         `json:"rejected"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Result is the outcome of a successful parse.
type Result struct {
	Dataset     *vitals.Dataset `json:"dataset"`
	Brand       string          `json:"brand,omitempty"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

// Summary is the user-facing confirmation for a load.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully loaded %d data points!", r.Dataset.Len())
	if r.Brand != "" {
		fmt.Fprintf(&b, "\nBrand: %s", r.Brand)
	}
	if first, last, ok := r.Dataset.Bounds(); ok {
		fmt.Fprintf(&b, "\nDate range: %s to %s", first.Format(vitals.DisplayLayout), last.Format(vitals.DisplayLayout))
	}
	if r.Diagnostics.Rejected > 0 {
		fmt.Fprintf(&b, "\nSkipped rows: %d", r.Diagnostics.Rejected)
	}
	return b.String()
}

type pipeline struct {
	layout  Layout
	norm    *dates.Normalizer
	logger  *slog.Logger
	diag    Diagnostics
	records []vitals.Record
}

func newPipeline(opt Options) *pipeline {
	p := &pipeline{layout: opt.Layout, norm: opt.Normalizer, logger: opt.Logger}
	if p.layout.Name == "" {
		p.layout = LayoutAdjacent
	}
	if p.norm == nil {
		p.norm = dates.New()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// row resolves the date value, validates the row and keeps or rejects it.
func (p *pipeline) row(raw RawRow, dateValue any) {
	date, derr := p.norm.ParseValue(dateValue)
	rec, err := Validate(raw, date, derr)
	if err != nil {
		p.reject(raw.Line, raw.DateToken, err)
		return
	}
	p.diag.Accepted++
	p.records = append(p.records, rec)
}

func (p *pipeline) reject(line int, token string, err error) {
	p.diag.Rejected++
	if len(p.diag.Rejections) < MaxRejections {
		p.diag.Rejections = append(p.diag.Rejections, Rejection{Line: line, Token: token, Reason: err.Error()})
	}
	p.logger.Debug("skipping row",
		slog.Int("line", line),
		slog.String("token", token),
		slog.String("reason", err.Error()))
}

// ParseSource extracts, validates and sorts the rows of src into a new
// Dataset. It fails with a *FileError when no header is found, when the
// file cannot be read, or when no row survives validation.
func ParseSource(src Source, opt Options) (*Result, error) {
	p := newPipeline(opt)
	brand, records, err := src.extract(p)
	if err != nil {
		fe := &FileError{Source: src.Name(), Err: err}
		if errors.Is(err, ErrHeaderNotFound) {
			fe.Detail = expectedFormat
		}
		return nil, fe
	}
	if len(records) == 0 {
		return nil, &FileError{
			Source: src.Name(),
			Err:    ErrEmptyResult,
			Detail: fmt.Sprintf("%d rows were rejected; check the date format and metric columns", p.diag.Rejected),
		}
	}

	ds := vitals.FromRecords(records)
	ds.Source = src.Name()
	p.logger.Info("parsed source",
		slog.String("source", src.Name()),
		slog.String("dataset_id", ds.ID),
		slog.String("brand", brand),
		slog.Int("accepted", p.diag.Accepted),
		slog.Int("rejected", p.diag.Rejected))
	return &Result{Dataset: ds, Brand: brand, Diagnostics: p.diag}, nil
}

// Decoder turns raw upload bytes into a Source.
type Decoder interface {
	CanDecode(filename string) bool
	AcceptsMIME(mime string) bool
	Decode(filename string, content []byte) (Source, error)
}

var registry []Decoder

// Register adds a decoder implementation to the registry.
func Register(d Decoder) {
	registry = append(registry, d)
}

func init() {
	Register(csvDecoder{})
	Register(sheetDecoder{})
}

// Decode selects a decoder by file extension, falling back to the MIME
// type when the extension is unknown.
func Decode(filename, mime string, content []byte) (Source, error) {
	for _, d := range registry {
		if d.CanDecode(filename) {
			return d.Decode(filename, content)
		}
	}
	if mime != "" {
		for _, d := range registry {
			if d.AcceptsMIME(mime) {
				return d.Decode(filename, content)
			}
		}
	}
	return nil, &FileError{
		Source: filename,
		Err:    ErrUnsupported,
		Detail: "upload a .csv, .xlsx or .xls export",
	}
}

// ParseBytes decodes and parses an upload held in memory.
func ParseBytes(filename, mime string, content []byte, opt Options) (*Result, error) {
	src, err := Decode(filename, mime, content)
	if err != nil {
		var fe *FileError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FileError{Source: filename, Err: err}
	}
	return ParseSource(src, opt)
}

// ParseFile reads path from disk and parses it.
func ParseFile(path string, opt Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseBytes(filepath.Base(path), "", data, opt)
}

func extOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
