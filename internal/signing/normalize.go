// Package signing normalizes the signature shapes returned by wallet
// vendors into the single canonical form the backend verifier accepts.
//
// Vendors disagree: some return a raw byte signature, some an ordered
// [r, s] pair (each element possibly itself a byte array), some a string
// encoding, some an object that already carries r and s, and some wrap any
// of the above one level deep under a "signature" field.
package signing

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kashguard/go-market-client/internal/market"
)

// Canonical is the one signature form sent to the verifier: either a plain
// string encoding or an {r, s} pair. Exactly one of the two is populated.
type Canonical struct {
	Value string `json:"-"`
	R     string `json:"r,omitempty"`
	S     string `json:"s,omitempty"`
}

// IsPair reports whether the canonical form is the {r, s} object.
func (c Canonical) IsPair() bool { return c.Value == "" }

func (c Canonical) MarshalJSON() ([]byte, error) {
	if !c.IsPair() {
		return json.Marshal(c.Value)
	}
	type pair struct {
		R string `json:"r"`
		S string `json:"s"`
	}
	return json.Marshal(pair{R: c.R, S: c.S})
}

func (c *Canonical) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Canonical{Value: s}
		return nil
	}
	var pair struct {
		R string `json:"r"`
		S string `json:"s"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	*c = Canonical{R: pair.R, S: pair.S}
	return nil
}

// maxUnwrapDepth bounds recursion through nested "signature" wrappers.
const maxUnwrapDepth = 4

// Normalize converts a wallet signature result into its canonical form.
// Dispatch is ordered and first match wins:
//
//  1. ordered pair (array of length 2) -> {r, s}
//  2. string -> passthrough
//  3. object already carrying r and s -> passthrough
//  4. object with a nested "signature" field -> unwrap once and re-run
//  5. empty/absent value -> InvalidSignature
//
// A raw byte signature is hex-encoded into the string form. Anything else
// fails with UnsupportedSignatureFormat. Pure function, no side effects.
func Normalize(raw interface{}) (Canonical, error) {
	return normalize(raw, 0)
}

func normalize(raw interface{}, depth int) (Canonical, error) {
	if depth > maxUnwrapDepth {
		return Canonical{}, market.E(market.ReasonUnsupportedSignatureFormat, "signature wrapper nested deeper than %d levels", maxUnwrapDepth)
	}

	switch v := raw.(type) {
	case nil:
		return Canonical{}, market.E(market.ReasonInvalidSignature, "signature is empty")

	case []interface{}:
		if len(v) == 2 {
			r, err := elementString(v[0])
			if err != nil {
				return Canonical{}, err
			}
			s, err := elementString(v[1])
			if err != nil {
				return Canonical{}, err
			}
			return Canonical{R: r, S: s}, nil
		}
		if len(v) == 0 {
			return Canonical{}, market.E(market.ReasonInvalidSignature, "signature is empty")
		}
		return Canonical{}, market.E(market.ReasonUnsupportedSignatureFormat, "array signature of length %d is not an [r, s] pair", len(v))

	case string:
		if v == "" {
			return Canonical{}, market.E(market.ReasonInvalidSignature, "signature is empty")
		}
		return Canonical{Value: v}, nil

	case []byte:
		if len(v) == 0 {
			return Canonical{}, market.E(market.ReasonInvalidSignature, "signature is empty")
		}
		return Canonical{Value: hexutil.Encode(v)}, nil

	case Canonical:
		return v, nil

	case map[string]interface{}:
		r, hasR := v["r"]
		s, hasS := v["s"]
		if hasR && hasS {
			rs, err := elementString(r)
			if err != nil {
				return Canonical{}, err
			}
			ss, err := elementString(s)
			if err != nil {
				return Canonical{}, err
			}
			return Canonical{R: rs, S: ss}, nil
		}
		if inner, ok := v["signature"]; ok {
			return normalize(inner, depth+1)
		}
		if len(v) == 0 {
			return Canonical{}, market.E(market.ReasonInvalidSignature, "signature is empty")
		}
		return Canonical{}, market.E(market.ReasonUnsupportedSignatureFormat, "object signature without r/s or nested signature field")

	default:
		return Canonical{}, market.E(market.ReasonUnsupportedSignatureFormat, "signature of type %T is not a recognized shape", raw)
	}
}

// elementString renders one r/s element: strings pass through, byte arrays
// (including JSON-decoded number arrays) are hex-encoded.
func elementString(el interface{}) (string, error) {
	switch e := el.(type) {
	case string:
		return e, nil
	case []byte:
		return hexutil.Encode(e), nil
	case []interface{}:
		buf := make([]byte, 0, len(e))
		for _, n := range e {
			f, ok := n.(float64)
			if !ok || f < 0 || f > 255 {
				return "", market.E(market.ReasonUnsupportedSignatureFormat, "signature component array contains a non-byte element")
			}
			buf = append(buf, byte(f))
		}
		return hexutil.Encode(buf), nil
	default:
		return "", market.E(market.ReasonUnsupportedSignatureFormat, "signature component of type %T is not a recognized shape", el)
	}
}
