package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_MarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"function", Result(7, map[string]int{"total": 1}), `{"type":"function","id":7,"value":{"total":1}}`},
		{"not found", Result(8, nil), `{"type":"function","id":8,"value":null}`},
		{"partial", Partial(PhaseNetwork, 2, 5), `{"type":"partial","name":"loadNetwork","current":2,"total":5}`},
		{"abort", Aborted(1), `{"type":"abort","id":1}`},
		{"error", Failed(3, errors.New("unknown function")), `{"type":"error","id":3,"error":"unknown function"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestResponse_MarshalUnknownType(t *testing.T) {
	_, err := json.Marshal(Response{Type: "bogus"})
	assert.Error(t, err)
}

func TestResponse_Unmarshal(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"type":"partial","name":"loadDB","current":1,"total":3}`), &r))
	assert.Equal(t, Partial(PhaseDB, 1, 3), r)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"function","id":4,"value":{"total":0}}`), &r))
	assert.Equal(t, int64(4), r.ID)
	assert.JSONEq(t, `{"total":0}`, string(r.Value.(json.RawMessage)))

	assert.Error(t, json.Unmarshal([]byte(`{"type":"nope"}`), &r))
}

func TestResponse_IsTerminal(t *testing.T) {
	assert.True(t, Result(1, nil).IsTerminal())
	assert.True(t, Aborted(1).IsTerminal())
	assert.True(t, Failed(1, errors.New("x")).IsTerminal())
	assert.False(t, Partial(PhaseDB, 0, 1).IsTerminal())
}

func TestRequest_Decode(t *testing.T) {
	var req Request
	raw := `{"function":"searchCards","id":12,"query":"t:goblin","skip":30,"take":16,"sort":"cmc","order":"desc"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.Equal(t, Request{
		Function: SearchCards, ID: 12, Query: "t:goblin",
		Skip: 30, Take: 16, Sort: "cmc", Order: "desc",
	}, req)
	assert.True(t, req.Function.IsValid())
	assert.False(t, Function("dropDB").IsValid())
}
