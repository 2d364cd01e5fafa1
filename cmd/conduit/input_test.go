package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"path/filepath"
	"testing"

	"github.com/hamba/avro/v2/ocf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/source/blobsource"
	"github.com/wehubfusion/Conduit/pkg/tree/avrotree"
)

const userSchema = `{
  "type": "record", "name": "User",
  "fields": [
    {"name": "name", "type": "string"},
    {"name": "age", "type": "int"},
    {"name": "email", "type": ["null", "string"]}
  ]
}`

func writeAvroFile(t *testing.T, dir string, users ...map[string]any) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(userSchema, &buf)
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, enc.Encode(u))
	}
	require.NoError(t, enc.Close())

	path := filepath.Join(dir, "users.avro")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func collectInput(t *testing.T, path string) []*record.Record {
	t.Helper()
	var recs []*record.Record
	require.NoError(t, readInput(context.Background(), localInput(path), func(rec *record.Record) error {
		recs = append(recs, rec)
		return nil
	}))
	return recs
}

func TestReadInput_Avro(t *testing.T) {
	path := writeAvroFile(t, t.TempDir(),
		map[string]any{"name": "ada", "age": 36, "email": "ada@example.com"},
		map[string]any{"name": "bob", "age": 41, "email": nil},
	)

	recs := collectInput(t, path)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, avrotree.MimeTypeMemory, first.GetFirstValue(record.AttachmentMimeType))
	assert.Equal(t, "users.avro", first.GetFirstValue(record.AttachmentName))
	datum, ok := first.GetFirstValue(record.AttachmentBody).(avrotree.Datum)
	require.True(t, ok)
	assert.Equal(t, "User", datum.Schema.(interface{ FullName() string }).FullName())
}

func TestReadInput_JSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n{\"a\":2}\n"), 0o600))

	recs := collectInput(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, []byte(`{"a":2}`), recs[1].GetFirstValue(record.AttachmentBody))
	assert.Equal(t, mimeJSON, recs[1].GetFirstValue(record.AttachmentMimeType))
}

func TestReadInput_Blob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	recs := collectInput(t, path)
	require.Len(t, recs, 1)
	assert.Equal(t, []byte{1, 2, 3}, recs[0].GetFirstValue(record.AttachmentBody))
	assert.Equal(t, mimeBinary, recs[0].GetFirstValue(record.AttachmentMimeType))
}

func TestReadInput_Missing(t *testing.T) {
	err := readInput(context.Background(), localInput(filepath.Join(t.TempDir(), "nope.avro")), func(*record.Record) error { return nil })
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, formatAvro, formatOf("a/b.AVRO"))
	assert.Equal(t, formatJSONLines, formatOf("x.ndjson"))
	assert.Equal(t, formatBlob, formatOf("x.txt"))
}

type fakeBlobs struct {
	blobs map[string]map[string]string
}

func (f *fakeBlobs) List(_ context.Context, loc blobsource.Location) ([]string, error) {
	var names []string
	for name := range f.blobs[loc.Container] {
		if strings.HasPrefix(name, loc.Prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeBlobs) Open(_ context.Context, container, name string) (io.ReadCloser, error) {
	data, ok := f.blobs[container][name]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func TestResolveInputs(t *testing.T) {
	blobs := &fakeBlobs{blobs: map[string]map[string]string{
		"events": {"2024/a.jsonl": "{\"a\":1}\n{\"a\":2}\n"},
	}}
	calls := 0
	newBlobs := func() (blobOpener, error) {
		calls++
		return blobs, nil
	}

	inputs, err := resolveInputs(context.Background(), []string{"local.avro", "azblob://events/2024/"}, newBlobs)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "local.avro", inputs[0].name)
	assert.Equal(t, "azblob://events/2024/a.jsonl", inputs[1].name)
	assert.Equal(t, 1, calls)

	var recs []*record.Record
	require.NoError(t, readInput(context.Background(), inputs[1], func(rec *record.Record) error {
		recs = append(recs, rec)
		return nil
	}))
	require.Len(t, recs, 2)
	assert.Equal(t, "a.jsonl", recs[0].GetFirstValue(record.AttachmentName))

	_, err = resolveInputs(context.Background(), []string{"azblob://events/2023/"}, newBlobs)
	assert.ErrorContains(t, err, "no blobs under")

	_, err = resolveInputs(context.Background(), []string{"local.avro"}, func() (blobOpener, error) {
		t.Fatal("blob client created without blob inputs")
		return nil, nil
	})
	assert.NoError(t, err)
}
