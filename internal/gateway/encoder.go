package gateway

import "encoding/json"

// JSONCallEncoder is the default CallEncoder. Real SCALE encoding of a
// substrate extrinsic is out of scope for this engine; this wraps the
// call, nonce, and signature in a JSON envelope that a node compatible
// with this engine is expected to accept verbatim.
type JSONCallEncoder struct{}

type jsonExtrinsic struct {
	Module    string `json:"module"`
	Method    string `json:"method"`
	Params    []any  `json:"params"`
	Nonce     uint64 `json:"nonce"`
	Signature []byte `json:"signature,omitempty"`
}

// Encode implements CallEncoder. When signature is nil the result is the
// unsigned preimage a Signer should sign; with a signature attached it is
// the final wire payload.
func (JSONCallEncoder) Encode(call Call, nonce uint64, signature []byte) ([]byte, error) {
	return json.Marshal(jsonExtrinsic{
		Module:    call.Module,
		Method:    call.Method,
		Params:    call.Params,
		Nonce:     nonce,
		Signature: signature,
	})
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = digits[c>>4]
		out[3+i*2] = digits[c&0x0f]
	}
	return string(out)
}
