// Package txn implements the transaction half of the marketplace protocol:
// normalization of backend transaction metadata into the wallet's canonical
// payload shape, the fullnode client that observes on-chain inclusion, and
// the prepare/sign/submit/confirm lifecycle orchestrator.
package txn

import (
	"encoding/json"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/wallet"
	"github.com/pkg/errors"
)

// NormalizePayload converts a backend transaction description of unknown
// shape into the canonical entry-function triple plus an explicit sender.
//
// Extraction priority, first success wins:
//
//	a. meta.payload.function (+ typeArguments/type_arguments,
//	   functionArguments/arguments)
//	b. meta.function or meta.functionId on the root
//	c. fail with MissingFunctionIdentifier
//
// The sender is the caller-supplied current account when present, else the
// sender the backend embedded; an empty sender is never defaulted silently.
func NormalizePayload(meta json.RawMessage, sender string) (market.EntryFunction, string, error) {
	if len(meta) == 0 {
		return market.EntryFunction{}, "", market.E(market.ReasonMissingFunctionIdentifier, "transaction metadata is empty")
	}

	var root map[string]interface{}
	if err := json.Unmarshal(meta, &root); err != nil {
		return market.EntryFunction{}, "", market.WrapE(market.ReasonMissingFunctionIdentifier, err, "transaction metadata is not an object")
	}

	source := root
	if nested, ok := root["payload"].(map[string]interface{}); ok {
		if _, has := nested["function"]; has {
			source = nested
		}
	}

	fn, _ := stringField(source, "function")
	if fn == "" {
		fn, _ = stringField(source, "functionId")
	}
	if fn == "" {
		return market.EntryFunction{}, "", market.E(market.ReasonMissingFunctionIdentifier, "no function identifier in transaction metadata")
	}

	entry := market.EntryFunction{
		Function:          fn,
		TypeArguments:     stringSliceField(source, "typeArguments", "type_arguments"),
		FunctionArguments: sliceField(source, "functionArguments", "arguments"),
	}

	resolved := sender
	if resolved == "" {
		resolved, _ = stringField(root, "sender")
	}
	if resolved == "" {
		return market.EntryFunction{}, "", market.E(market.ReasonMissingSender, "no sender supplied and none embedded in transaction metadata")
	}
	canonical, err := wallet.CanonicalAddress(resolved)
	if err != nil {
		return market.EntryFunction{}, "", errors.Wrap(err, "failed to canonicalize sender")
	}

	return entry, canonical, nil
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

func stringSliceField(m map[string]interface{}, keys ...string) []string {
	for _, key := range keys {
		raw, ok := m[key].([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, el := range raw {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func sliceField(m map[string]interface{}, keys ...string) []interface{} {
	for _, key := range keys {
		if raw, ok := m[key].([]interface{}); ok {
			return raw
		}
	}
	return []interface{}{}
}
