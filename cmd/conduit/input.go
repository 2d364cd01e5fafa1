package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/source/blobsource"
	"github.com/wehubfusion/Conduit/pkg/tree/avrotree"
)

const (
	mimeJSON   = "application/json"
	mimeBinary = "application/octet-stream"

	// maxLineSize bounds one JSON line; longer lines fail the input.
	maxLineSize = 16 << 20
)

// inputFormat selects how a file is split into records.
type inputFormat int

const (
	formatBlob inputFormat = iota
	formatAvro
	formatJSONLines
)

func formatOf(path string) inputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avro":
		return formatAvro
	case ".json", ".jsonl", ".ndjson":
		return formatJSONLines
	}
	return formatBlob
}

// input is one unit of work for the run command: a local file or a blob.
type input struct {
	// name identifies the input in logs, errors and notifications
	name string
	open func(ctx context.Context) (io.ReadCloser, error)
}

func localInput(file string) input {
	return input{
		name: file,
		open: func(context.Context) (io.ReadCloser, error) {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("open input: %w", err)
			}
			return f, nil
		},
	}
}

// blobOpener is the part of the blob client the run command needs.
type blobOpener interface {
	List(ctx context.Context, loc blobsource.Location) ([]string, error)
	Open(ctx context.Context, container, name string) (io.ReadCloser, error)
}

// resolveInputs expands arguments into inputs. Blob locations expand to
// every blob under their prefix; newBlobs is called only when one is used.
func resolveInputs(ctx context.Context, args []string, newBlobs func() (blobOpener, error)) ([]input, error) {
	var blobs blobOpener
	var inputs []input
	for _, arg := range args {
		if !blobsource.IsLocation(arg) {
			inputs = append(inputs, localInput(arg))
			continue
		}
		loc, err := blobsource.ParseLocation(arg)
		if err != nil {
			return nil, err
		}
		if blobs == nil {
			if blobs, err = newBlobs(); err != nil {
				return nil, err
			}
		}
		names, err := blobs.List(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no blobs under %s", loc)
		}
		for _, name := range names {
			client, container, name := blobs, loc.Container, name
			inputs = append(inputs, input{
				name: blobsource.Scheme + container + "/" + name,
				open: func(ctx context.Context) (io.ReadCloser, error) {
					return client.Open(ctx, container, name)
				},
			})
		}
	}
	return inputs, nil
}

// readInput opens in and calls emit with one record per input item: each
// datum of an Avro container file, each non-empty line of a JSON lines
// file, or the whole input for anything else. Emit errors stop the read.
func readInput(ctx context.Context, in input, emit func(*record.Record) error) error {
	rc, err := in.open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	name := path.Base(filepath.ToSlash(in.name))
	switch formatOf(in.name) {
	case formatAvro:
		return readAvro(rc, name, emit)
	case formatJSONLines:
		return readJSONLines(rc, name, emit)
	default:
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return emit(newInputRecord(name, mimeBinary, data))
	}
}

func readAvro(r io.Reader, name string, emit func(*record.Record) error) error {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return fmt.Errorf("open avro container %s: %w", name, err)
	}
	schema, err := avro.Parse(string(dec.Metadata()["avro.schema"]))
	if err != nil {
		return fmt.Errorf("parse writer schema of %s: %w", name, err)
	}

	for dec.HasNext() {
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		rec := newInputRecord(name, avrotree.MimeTypeMemory, avrotree.Datum{Schema: schema, Value: v})
		if err := emit(rec); err != nil {
			return err
		}
	}
	if err := dec.Error(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func readJSONLines(r io.Reader, name string, emit func(*record.Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		body := make([]byte, len(line))
		copy(body, line)
		if err := emit(newInputRecord(name, mimeJSON, body)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func newInputRecord(name, mimeType string, body any) *record.Record {
	rec := record.New()
	rec.Put(record.AttachmentBody, body)
	rec.Put(record.AttachmentMimeType, mimeType)
	rec.Put(record.AttachmentName, name)
	return rec
}
