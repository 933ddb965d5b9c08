package txn

import (
	"encoding/json"
	"testing"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePayloadEquivalentShapes(t *testing.T) {
	// The same transaction in the three shapes backends are known to
	// produce must normalize to one identical triple.
	shapes := map[string]string{
		"nested payload": `{
			"payload": {
				"function": "0x1::marketplace::list",
				"typeArguments": ["0x1::aptos_coin::AptosCoin"],
				"functionArguments": ["nft1", "5"]
			}
		}`,
		"root camelCase": `{
			"function": "0x1::marketplace::list",
			"typeArguments": ["0x1::aptos_coin::AptosCoin"],
			"functionArguments": ["nft1", "5"]
		}`,
		"root functionId snake_case": `{
			"functionId": "0x1::marketplace::list",
			"type_arguments": ["0x1::aptos_coin::AptosCoin"],
			"arguments": ["nft1", "5"]
		}`,
	}

	want := market.EntryFunction{
		Function:          "0x1::marketplace::list",
		TypeArguments:     []string{"0x1::aptos_coin::AptosCoin"},
		FunctionArguments: []interface{}{"nft1", "5"},
	}

	for name, raw := range shapes {
		entry, sender, err := NormalizePayload(json.RawMessage(raw), "0xA1")
		require.NoError(t, err, name)
		assert.Equal(t, want, entry, name)
		assert.Equal(t, "0xa1", sender, name)
	}
}

func TestNormalizePayloadMissingFunction(t *testing.T) {
	for _, raw := range []string{`{}`, `{"payload":{}}`, `{"payload":{"typeArguments":[]}}`} {
		_, _, err := NormalizePayload(json.RawMessage(raw), "0xA1")
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonMissingFunctionIdentifier}, raw)
	}

	_, _, err := NormalizePayload(nil, "0xA1")
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonMissingFunctionIdentifier})
}

func TestNormalizePayloadSenderResolution(t *testing.T) {
	meta := json.RawMessage(`{"function":"0x1::m::f","sender":"0xBEEF"}`)

	// Caller-supplied account wins over the embedded sender.
	_, sender, err := NormalizePayload(meta, "0xC0DE")
	require.NoError(t, err)
	assert.Equal(t, "0xc0de", sender)

	// Without a caller account the backend-embedded sender is used.
	_, sender, err = NormalizePayload(meta, "")
	require.NoError(t, err)
	assert.Equal(t, "0xbeef", sender)

	// Neither present is a hard failure, never an empty default.
	_, _, err = NormalizePayload(json.RawMessage(`{"function":"0x1::m::f"}`), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonMissingSender})
}

func TestNormalizePayloadMissingArgumentLists(t *testing.T) {
	entry, _, err := NormalizePayload(json.RawMessage(`{"function":"0x1::m::f"}`), "0x1")
	require.NoError(t, err)
	assert.NotNil(t, entry.TypeArguments)
	assert.NotNil(t, entry.FunctionArguments)
	assert.Empty(t, entry.TypeArguments)
	assert.Empty(t, entry.FunctionArguments)
}
