// Package columnar is the thin adapter over the columnar file format
// library. It treats github.com/parquet-go/parquet-go purely as an
// external collaborator: callers hand it rows and a key/value metadata
// table, it hands back a complete file; callers hand it file bytes, it
// hands back the embedded key/value metadata table. Nothing above this
// package knows the on-disk row layout.
package columnar

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// zstdDec is a package-level decoder, concurrent-safe, always available for
// reads of the raw column.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("columnar: init zstd decoder: " + err.Error())
	}
}

// Row is one logical record written into a chunk file. Attributes carries
// arbitrary string tags alongside the timestamp and raw payload; the exact
// column layout is an implementation detail of this package.
type Row struct {
	Timestamp  int64
	Attributes map[string]string
	Raw        []byte
}

type row struct {
	Timestamp int64             `parquet:"timestamp"`
	Attrs     map[string]string `parquet:"attrs"`
	Raw       []byte            `parquet:"raw"`
}

// ErrMetadataMissing is returned by MetadataValue when the requested key is
// not present in a file's key/value metadata table.
var ErrMetadataMissing = errors.New("columnar: metadata key not present in footer")

// FooterSummary is the parsed-without-redownloading footer handed back to
// callers of WriteFile, so they can record it without a second read.
type FooterSummary struct {
	NumRows          int64
	KeyValueMetadata map[string]string
}

// WriteFile serializes rows into a complete columnar file, embedding kv as
// the file's key/value metadata table. It returns the encoded bytes and a
// summary of the footer it just wrote, so the caller never needs to
// re-download what it just uploaded.
func WriteFile(rows []Row, kv map[string]string) ([]byte, FooterSummary, error) {
	buf := new(bytes.Buffer)

	// parquet.KeyValueMetadata takes one key/value pair per call.
	opts := make([]parquet.WriterOption, 0, len(kv))
	for k, v := range kv {
		opts = append(opts, parquet.KeyValueMetadata(k, v))
	}
	writer := parquet.NewGenericWriter[row](buf, opts...)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, FooterSummary{}, fmt.Errorf("columnar: init zstd encoder: %w", err)
	}
	defer enc.Close()

	plain := make([]row, len(rows))
	for i, r := range rows {
		plain[i] = row{Timestamp: r.Timestamp, Attrs: r.Attributes, Raw: enc.EncodeAll(r.Raw, nil)}
	}

	n, err := writer.Write(plain)
	if err != nil {
		return nil, FooterSummary{}, fmt.Errorf("columnar: write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, FooterSummary{}, fmt.Errorf("columnar: close writer: %w", err)
	}

	data := buf.Bytes()
	summary, err := ReadFooterMetadataSummary(data)
	if err != nil {
		return nil, FooterSummary{}, fmt.Errorf("columnar: re-parse own footer: %w", err)
	}
	summary.NumRows = int64(n)

	return data, summary, nil
}

// ReadFooterMetadata extracts the full key/value metadata table from a
// columnar file's footer without materializing any row data.
func ReadFooterMetadata(data []byte) (map[string]string, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("columnar: open file footer: %w", err)
	}

	out := make(map[string]string)
	for _, kv := range footerKeyValueMetadata(f) {
		if kv.Value != nil {
			out[kv.Key] = *kv.Value
		} else {
			out[kv.Key] = ""
		}
	}
	return out, nil
}

// ReadFooterMetadataSummary is ReadFooterMetadata plus the row count,
// for callers that want both in one footer parse.
func ReadFooterMetadataSummary(data []byte) (FooterSummary, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return FooterSummary{}, fmt.Errorf("columnar: open file footer: %w", err)
	}
	kv, err := ReadFooterMetadata(data)
	if err != nil {
		return FooterSummary{}, err
	}
	return FooterSummary{NumRows: f.NumRows(), KeyValueMetadata: kv}, nil
}

// DecompressRaw reverses the zstd compression WriteFile applies to each
// row's raw payload before it is stored in the raw column.
func DecompressRaw(compressed []byte) ([]byte, error) {
	raw, err := zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("columnar: decompress raw column: %w", err)
	}
	return raw, nil
}

// MetadataValue extracts a single key's value from a parsed footer table,
// distinguishing absence from an empty value.
func MetadataValue(kv map[string]string, key string) (string, error) {
	v, ok := kv[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMetadataMissing, key)
	}
	return v, nil
}

func footerKeyValueMetadata(f *parquet.File) []format.KeyValue {
	return f.Metadata().KeyValueMetadata
}
