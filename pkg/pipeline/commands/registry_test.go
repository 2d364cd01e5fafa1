package commands

import (
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/collect"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/tree/avrotree"
)

func TestNewRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{
		"extractAvroTree", "extractJsonPaths",
		"setValues", "addValues", "addValuesIfAbsent",
		"removeFields", "generateUUID", "convertCase", "convertTimestamp", "js",
		"equals", "contains", "dropRecord", "head", "validateFields",
		"logTrace", "logDebug", "logInfo", "logWarn", "logError",
		"collect",
	} {
		assert.True(t, reg.Has(name), name)
	}
	assert.Len(t, reg.Names(), 21)
}

const pipelineYAML = `
id: morphline1
importCommands: ["*"]
commands:
  - extractAvroTree:
      outputFieldPrefix: ""
  - removeFields:
      blacklist: ["_attachment_*"]
  - contains:
      /name/language/country: ["gb"]
  - setValues:
      language: "@{/name/language/code}"
  - logDebug:
      format: "output record: {}"
      args: ["@{}"]
`

const schemaJSON = `{
  "type": "record", "name": "Doc",
  "fields": [
    {"name": "docId", "type": "long"},
    {"name": "name", "type": {
      "type": "record", "name": "Name",
      "fields": [{"name": "language", "type": {"type": "array", "items": {
        "type": "record", "name": "Language",
        "fields": [
          {"name": "code", "type": "string"},
          {"name": "country", "type": ["null", "string"]}
        ]
      }}}]
    }}
  ]
}`

func TestPipeline_EndToEnd(t *testing.T) {
	cfg, err := runtime.ParsePipelineConfig([]byte(pipelineYAML))
	require.NoError(t, err)

	sink := collect.New()
	chain, err := runtime.Build(NewRegistry(), cfg, runtime.NewContext(), sink)
	require.NoError(t, err)
	assert.Equal(t, "morphline1", chain.ID())

	schema := avro.MustParse(schemaJSON)
	push := func(countries ...any) bool {
		langs := make([]any, len(countries))
		for i, c := range countries {
			langs[i] = map[string]any{"code": "en", "country": c}
		}
		rec := record.New()
		rec.Put(record.AttachmentBody, avrotree.Datum{Schema: schema, Value: map[string]any{
			"docId": int64(len(countries)),
			"name":  map[string]any{"language": langs},
		}})
		rec.Put(record.AttachmentMimeType, avrotree.MimeTypeMemory)

		ok, err := chain.Process(rec)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, push("us", "gb"))
	assert.False(t, push("us", nil))

	require.Equal(t, 1, sink.Len())
	out := sink.First()
	assert.Equal(t, []string{"/docId", "/name/language/code", "/name/language/country", "language"}, out.Fields())
	assert.Equal(t, []any{"en", "en"}, out.Get("language"))
	assert.Equal(t, []any{int64(2)}, out.Get("/docId"))
}
