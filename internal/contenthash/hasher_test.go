package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintKnownDigest(t *testing.T) {
	doc := `{ "b": {"d": null, "c": "<x>"},
	          "a": [1, 2.50] }`

	assert.Equal(t, "b52f2a0795f3432d6891a3834bc980143cb4696c0f6afda14f78297b41af86bc", FingerprintString(doc))
}

func TestFingerprintIgnoresKeyOrderAndWhitespace(t *testing.T) {
	variants := []string{
		`{"name":"wf","nodes":[{"name":"A","type":"x","position":[1,2]}],"connections":{}}`,
		`{"connections":{},"nodes":[{"type":"x","position":[1,2],"name":"A"}],"name":"wf"}`,
		"{\n  \"nodes\": [ { \"position\": [1, 2], \"name\": \"A\", \"type\": \"x\" } ],\n  \"name\": \"wf\",\n  \"connections\": { }\n}",
		`{"name":"wf","nodes":[{"name":"A","type":"x","position":[1.0,2.00]}],"connections":{}}`,
		`{"name":"wf","nodes":[{"name":"A","type":"x","position":[1e0,0.2e1]}],"connections":{}}`,
	}

	want := FingerprintString(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, FingerprintString(v))
	}
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	assert.NotEqual(t, FingerprintString(`{"a":1}`), FingerprintString(`{"a":2}`))
	assert.NotEqual(t, FingerprintString(`{"a":[1,2]}`), FingerprintString(`{"a":[2,1]}`))
	assert.NotEqual(t, FingerprintString(`{"a":2.5}`), FingerprintString(`{"a":2.05}`))
}

func TestFingerprintEqualNumbers(t *testing.T) {
	assert.Equal(t, FingerprintString(`{"v":2.5}`), FingerprintString(`{"v":2.50}`))
	assert.Equal(t, FingerprintString(`{"v":1e3}`), FingerprintString(`{"v":1000.0}`))

	// integer literals beyond float precision stay distinct
	assert.NotEqual(t, FingerprintString(`{"id":9007199254740993}`), FingerprintString(`{"id":9007199254740992}`))
}

func TestFingerprintFallsBackToRawText(t *testing.T) {
	raw := "not json {"

	assert.Equal(t, "c3f07c17117dc1953b6b514cc4e816c00a33fb6cbbe66cbb31e5e22cd1a05fd0", FingerprintString(raw))
	assert.Equal(t, HashBytes([]byte(raw)), FingerprintString(raw))
}

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize([]byte(`{"z": "ü & <b>", "a": {"y": 1e3, "x": true}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":true,"y":1000},"z":"ü & <b>"}`, string(out))

	_, err = Canonicalize([]byte(`{"a":1} trailing`))
	assert.Error(t, err)
}
