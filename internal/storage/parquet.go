package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Row is one flat output record. Values are string, int64, float64, bool,
// time.Time, or nil; anything upstream hands us is converted at the
// normalization boundary before it gets here.
type Row = map[string]interface{}

// ColumnType enumerates the column types the datasets use.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeTimestamp
)

// Column is one named, typed output column.
type Column struct {
	Name string
	Type ColumnType
}

// Table describes a dataset's name and column layout.
type Table struct {
	Name    string
	Columns []Column
}

// ArrowSchema builds the Arrow schema for the table. All columns are
// nullable; timestamps are microsecond-precision UTC, matching what the
// Parquet consumers downstream expect.
func (t Table) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(t.Columns))
	for _, col := range t.Columns {
		f := arrow.Field{Name: col.Name, Nullable: true}
		switch col.Type {
		case TypeInt64:
			f.Type = arrow.PrimitiveTypes.Int64
		case TypeFloat64:
			f.Type = arrow.PrimitiveTypes.Float64
		case TypeBool:
			f.Type = arrow.FixedWidthTypes.Boolean
		case TypeTimestamp:
			f.Type = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
		default:
			f.Type = arrow.BinaryTypes.String
		}
		fields = append(fields, f)
	}
	return arrow.NewSchema(fields, nil)
}

// MarshalRows encodes rows into one Parquet file using the table's schema.
func MarshalRows(t Table, rows []Row, compression compress.Compression) ([]byte, error) {
	schema := t.ArrowSchema()

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for _, row := range rows {
		for i, col := range t.Columns {
			if err := appendValue(builder.Field(i), col, row[col.Name]); err != nil {
				return nil, err
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithDataPageSize(1024*1024),
	)
	writer, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties())
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func appendValue(b array.Builder, col Column, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("column %s: expected string, got %T", col.Name, v)
		}
		builder.Append(s)
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("column %s: expected int64, got %T", col.Name, v)
		}
		builder.Append(n)
	case *array.Float64Builder:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("column %s: expected float64, got %T", col.Name, v)
		}
		builder.Append(f)
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("column %s: expected bool, got %T", col.Name, v)
		}
		builder.Append(bv)
	case *array.TimestampBuilder:
		ts, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("column %s: expected time.Time, got %T", col.Name, v)
		}
		builder.Append(arrow.Timestamp(ts.UTC().UnixMicro()))
	default:
		return fmt.Errorf("column %s: unsupported builder type %T", col.Name, b)
	}
	return nil
}

// UnmarshalRows decodes a Parquet file back into rows. Null cells come back
// as absent keys so merged rows round-trip cleanly.
func UnmarshalRows(ctx context.Context, data []byte) ([]Row, error) {
	reader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet data: %w", err)
	}
	defer reader.Close()

	fr, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{BatchSize: 4096}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet table: %w", err)
	}
	defer tbl.Release()

	rows := make([]Row, tbl.NumRows())
	for i := range rows {
		rows[i] = Row{}
	}

	for colIdx := 0; colIdx < int(tbl.NumCols()); colIdx++ {
		col := tbl.Column(colIdx)
		name := tbl.Schema().Field(colIdx).Name
		rowIdx := 0
		for _, chunk := range col.Data().Chunks() {
			if err := decodeChunk(chunk, name, rows, &rowIdx); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

func decodeChunk(chunk arrow.Array, name string, rows []Row, rowIdx *int) error {
	switch arr := chunk.(type) {
	case *array.String:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				rows[*rowIdx][name] = arr.Value(i)
			}
			*rowIdx++
		}
	case *array.Int64:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				rows[*rowIdx][name] = arr.Value(i)
			}
			*rowIdx++
		}
	case *array.Float64:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				rows[*rowIdx][name] = arr.Value(i)
			}
			*rowIdx++
		}
	case *array.Boolean:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				rows[*rowIdx][name] = arr.Value(i)
			}
			*rowIdx++
		}
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				rows[*rowIdx][name] = arr.Value(i).ToTime(unit).UTC()
			}
			*rowIdx++
		}
	default:
		return fmt.Errorf("column %s: unsupported Parquet column type %T", name, chunk)
	}
	return nil
}

// CompressionCodec maps a config string to a Parquet compression codec,
// defaulting to snappy.
func CompressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}
