package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationEncodeDecode(t *testing.T) {
	d := NewDocument("alice")
	op, err := d.InsertText("body", 0, "hi")
	require.NoError(t, err)

	data, err := op.Encode()
	require.NoError(t, err)

	decoded, err := DecodeOperation(data)
	require.NoError(t, err)
	assert.Equal(t, op.ID, decoded.ID)
	assert.Equal(t, op.Kind, decoded.Kind)
	assert.Equal(t, op.Clock, decoded.Clock)
	assert.Equal(t, string(op.Payload), string(decoded.Payload))

	// a fresh replica can apply the decoded form
	other := NewDocument("bob")
	require.NoError(t, other.ApplyRemote(decoded))
	assert.Equal(t, "hi", other.View().Texts["body"].Plain)
}

func TestDecodeOperationMalformed(t *testing.T) {
	valid := `{"id":"op-1","clock":{"physical":1,"counter":0,"replica":"a"},"kind":"INCREMENT","target":"n","replica_id":"a","payload":{"amount":2}}`

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"missing id", `{"kind":"INCREMENT","target":"n","replica_id":"a","payload":{"amount":2}}`},
		{"missing target", `{"id":"op-1","kind":"INCREMENT","replica_id":"a","payload":{"amount":2}}`},
		{"unknown kind", `{"id":"op-1","kind":"EXPLODE","target":"n","replica_id":"a","payload":{}}`},
		{"missing payload", `{"id":"op-1","kind":"INCREMENT","target":"n","replica_id":"a"}`},
		{"negative amount", `{"id":"op-1","kind":"INCREMENT","target":"n","replica_id":"a","payload":{"amount":-2}}`},
		{"insert text without ids", `{"id":"op-1","kind":"INSERT_TEXT","target":"t","replica_id":"a","payload":{"text":"hi"}}`},
		{"format without tag", `{"id":"op-1","kind":"FORMAT_TEXT","target":"t","replica_id":"a","payload":{"start_id":"x","end_id":"y","format":"bold"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOperation([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedOperation)
		})
	}

	// sanity: the base document is decodable
	_, err := DecodeOperation([]byte(valid))
	assert.NoError(t, err)
}

func TestOperationKindCoverage(t *testing.T) {
	// every wire kind round-trips through the payload decoder
	d := NewDocument("alice")
	ops := []Operation{
		mustApply(t)(d.SetValue("r", "v")),
		mustApply(t)(d.AddElement("s", "v")),
		mustApply(t)(d.RemoveElement("s", "v")),
		mustApply(t)(d.InsertAt("l", 0, "v")),
		mustApply(t)(d.DeleteAt("l", 0)),
		mustApply(t)(d.Increment("c", 1)),
		mustApply(t)(d.Decrement("c", 1)),
		mustApply(t)(d.SetEntry("m", "k", "v")),
		mustApply(t)(d.DeleteEntry("m", "k")),
		mustApply(t)(d.InsertText("t", 0, "hi")),
		mustApply(t)(d.FormatText("t", 0, 2, "bold")),
		mustApply(t)(d.UnformatText("t", 0, 2, "bold")),
		mustApply(t)(d.DeleteText("t", 0, 2)),
	}
	seen := map[Kind]bool{}
	for _, op := range ops {
		require.NoError(t, op.Validate(), "kind %s", op.Kind)
		seen[op.Kind] = true
	}
	assert.Len(t, seen, 13)
}
