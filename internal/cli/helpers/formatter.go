package helpers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// Formatter writes command results.
type Formatter interface {
	Format(data any, writer io.Writer) error
}

// NewFormatter creates a new Formatter for the given format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable:
		return &TableFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Print formats data in the given format to w.
func Print(w io.Writer, format OutputFormat, data any) error {
	f, err := NewFormatter(format)
	if err != nil {
		return err
	}
	return f.Format(data, w)
}

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any, writer io.Writer) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// TableFormatter formats rows as an aligned table using `header` struct
// tags. A single struct prints as a one-row table.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, writer io.Writer) error {
	rows, err := asRows(data)
	if err != nil || rows.Len() == 0 {
		return err
	}

	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(getHeaders(rows.Index(0).Type()), "\t")); err != nil {
		return err
	}
	for i := 0; i < rows.Len(); i++ {
		if _, err := fmt.Fprintln(w, strings.Join(getRowValues(rows.Index(i)), "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

// CSVFormatter formats rows as CSV using `header` struct tags.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, writer io.Writer) error {
	rows, err := asRows(data)
	if err != nil || rows.Len() == 0 {
		return err
	}

	w := csv.NewWriter(writer)
	if err := w.Write(getHeaders(rows.Index(0).Type())); err != nil {
		return err
	}
	for i := 0; i < rows.Len(); i++ {
		if err := w.Write(getRowValues(rows.Index(i))); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// asRows returns data as a slice value, wrapping a single struct.
func asRows(data any) (reflect.Value, error) {
	val := reflect.ValueOf(data)
	switch {
	case val.Kind() == reflect.Slice:
		return val, nil
	case val.Kind() == reflect.Struct,
		val.Kind() == reflect.Ptr && !val.IsNil() && val.Elem().Kind() == reflect.Struct:
		rows := reflect.MakeSlice(reflect.SliceOf(val.Type()), 1, 1)
		rows.Index(0).Set(val)
		return rows, nil
	default:
		return reflect.Value{}, fmt.Errorf("data must be a slice or struct")
	}
}

func getHeaders(t reflect.Type) []string {
	var headers []string
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("header")
		if tag != "" {
			headers = append(headers, tag)
		}
	}
	return headers
}

func getRowValues(v reflect.Value) []string {
	var values []string
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("header") != "" {
			values = append(values, fmt.Sprintf("%v", v.Field(i).Interface()))
		}
	}
	return values
}
