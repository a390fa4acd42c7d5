package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/protocol"
)

func TestSchemasValidateSamples(t *testing.T) {
	samples := []string{
		`{"type":"HELLO","protocol_version":"1.0","client_name":"bot1"}`,
		`{"type":"WELCOME","protocol_version":"1.0","session_id":"s1","ranks":[2,3],
		  "catalogs":{"placeholders":{"digest":"deadbeef","count":3},"tuning_digest":"beef"}}`,
		`{"type":"REGENERATE","protocol_version":"1.0","request_id":"r1","rank":2,"seed":"abc","include_mesh":true}`,
		`{"type":"GENERATED","protocol_version":"1.0","gen_id":"g1","rank":2,"seed":"abc","dims":[20,20,1],
		  "rooms":[{"id":0,"size":7,"main":true,"accessible":true,"connected":[]}],
		  "connections":[],"spawn":{"cell":[10,10,0],"pos":[0.5,0,0.5]},
		  "mesh":{"vertices":10,"triangles":4,"chunks":0,"outlines":1},
		  "floor":{"origin":[0,0,0],"vertices":[0,0,0,1,0,0,1,0,1],"triangles":[0,1,2]},
		  "duration_ms":3}`,
		`{"type":"ERROR","protocol_version":"1.0","code":"E_BUSY","message":"later"}`,
	}
	for _, s := range samples {
		assert.NoError(t, protocol.Validate([]byte(s)), s)
	}
}

func TestSchemasRejectBadRegenerate(t *testing.T) {
	bad := []string{
		`{"type":"REGENERATE","protocol_version":"1.0","rank":4}`,
		`{"type":"REGENERATE","protocol_version":"1.0"}`,
		`{"type":"REGENERATE","protocol_version":"1.0","rank":2,"seed":7}`,
		`{"type":"REGENERATE","protocol_version":"1.0","rank":2,"width":9}`,
		`{"type":"ERROR","protocol_version":"1.0","code":"E_WHATEVER"}`,
	}
	for _, s := range bad {
		assert.Error(t, protocol.Validate([]byte(s)), s)
	}
	assert.Error(t, protocol.Validate([]byte(`{"type":"NOPE"}`)))
	assert.Error(t, protocol.Validate([]byte(`not json`)))
}

func TestGoMessagesMatchSchemas(t *testing.T) {
	msgs := []any{
		protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version},
		protocol.WelcomeMsg{
			Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, SessionID: "s", Ranks: []int{2, 3},
			Catalogs: protocol.CatalogDigests{Placeholders: protocol.DigestRef{Digest: "d", Count: 1}},
		},
		protocol.RegenerateMsg{Type: protocol.TypeRegenerate, ProtocolVersion: protocol.Version, Rank: 3, UseRandomSeed: true},
		protocol.GeneratedMsg{
			Type: protocol.TypeGenerated, ProtocolVersion: protocol.Version, GenID: "g", Rank: 3, Dims: [3]int{4, 4, 4},
			Chunks: []protocol.MeshBuffer{{Vertices: []float32{0, 0, 0}, Triangles: []int32{0}}},
		},
		protocol.NewError("", protocol.ErrInternal, "boom"),
	}
	for _, m := range msgs {
		b, err := json.Marshal(m)
		require.NoError(t, err)
		assert.NoError(t, protocol.Validate(b), string(b))
	}
}
