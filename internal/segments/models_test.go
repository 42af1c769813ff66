package segments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    Document
		wantErr bool
	}{
		{name: "bytes", src: []byte(`{"tags":["vip"]}`), want: Document(`{"tags":["vip"]}`)},
		{name: "string", src: `{}`, want: Document(`{}`)},
		{name: "null", src: nil, want: nil},
		{name: "unsupported", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			err := doc.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc)
		})
	}
}

func TestDocument_ScanCopiesDriverBuffer(t *testing.T) {
	buf := []byte(`{"tags":["vip"]}`)
	var doc Document
	require.NoError(t, doc.Scan(buf))

	buf[2] = 'X'
	assert.JSONEq(t, `{"tags":["vip"]}`, string(doc))
}

func TestDocument_EmptyValueIsObject(t *testing.T) {
	v, err := Document(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	data, err := json.Marshal(Segment{Name: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filter":{}`)
}

func TestUpdateSegmentRequest_NullFilterMeansUnchanged(t *testing.T) {
	var req UpdateSegmentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","filter":null}`), &req))
	assert.Nil(t, req.Filter)

	require.NoError(t, json.Unmarshal([]byte(`{"filter":{"tags":["a"]}}`), &req))
	assert.JSONEq(t, `{"tags":["a"]}`, string(req.Filter))
}

func TestDocument_Specification(t *testing.T) {
	spec, err := Document(`{"groupOperator":"OR","conditionGroups":[{"conditions":[{"field":"customField.score","operator":"greater_than","value":10}]}]}`).Specification()
	require.NoError(t, err)
	require.Len(t, spec.ConditionGroups, 1)
	assert.Equal(t, json.Number("10"), spec.ConditionGroups[0].Conditions[0].Value)
}
