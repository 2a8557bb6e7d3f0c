package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		ok     bool
		reason string
	}{
		{name: "valid", doc: `{"nodes":[],"connections":{}}`, ok: true},
		{name: "not json", doc: `{nodes`, reason: "document is not valid JSON"},
		{name: "array", doc: `[1,2]`, reason: "document must be a JSON object"},
		{name: "missing nodes", doc: `{"connections":{}}`, reason: "required field 'nodes' is missing"},
		{name: "missing connections", doc: `{"nodes":[]}`, reason: "required field 'connections' is missing"},
		{name: "nodes not list", doc: `{"nodes":{},"connections":{}}`, reason: "'nodes' must be a list"},
		{name: "connections not object", doc: `{"nodes":[],"connections":[]}`, reason: "'connections' must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Validate([]byte(tt.doc))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestDerive(t *testing.T) {
	doc := []byte(`{
		"name": "Lead intake",
		"nodes": [
			{"name": "Set", "type": "n8n-nodes-base.set"},
			{"name": "Hook", "type": "n8n-nodes-base.Webhook"},
			{"name": "Cron", "type": "n8n-nodes-base.scheduleTrigger"}
		],
		"connections": {},
		"tags": [{"id": "1", "name": "crm"}, "sales", {"id": "2"}]
	}`)

	md := Derive(doc)
	assert.Equal(t, "Lead intake", md.Name)
	assert.Equal(t, 3, md.NodeCount)
	assert.Equal(t, "n8n-nodes-base.Webhook", md.TriggerType)
	assert.Equal(t, []string{"crm", "sales"}, md.Tags)
}

func TestDeriveMalformed(t *testing.T) {
	md := Derive([]byte(`not json`))
	assert.Equal(t, DefaultName, md.Name)
	assert.Zero(t, md.NodeCount)
	assert.Empty(t, md.TriggerType)

	md = Derive([]byte(`{"nodes": "oops", "connections": {}}`))
	assert.Zero(t, md.NodeCount)
	assert.Empty(t, md.TriggerType)
	assert.Equal(t, []string{}, md.Tags)
}

func TestRemoteID(t *testing.T) {
	assert.Equal(t, "77", RemoteID([]byte(`{"id":"77"}`)))
	assert.Equal(t, "77", RemoteID([]byte(`{"id":77}`)))
	assert.Equal(t, "", RemoteID([]byte(`{"id":null}`)))
	assert.Equal(t, "", RemoteID([]byte(`{}`)))
}
