package custody

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// ReshapeSignature converts the raw signature components returned by the
// custody service into the encoding the target chain expects. It is a pure
// function of (algorithm, chain, parts).
//
//   - Bitcoin message signatures prepend a recovery byte (31 + v for
//     compressed keys) and are base64-encoded.
//   - XRP Ledger concatenates r and s as uppercase hex.
//   - EVM chains append the recovery id offset by 27, hex-encoded.
//   - Cardano (ed25519) signatures pass through unchanged; they are wrapped
//     into a witness set by the transaction codec.
func ReshapeSignature(algorithm string, chain Chain, parts SignatureParts) (string, error) {
	switch algorithm {
	case AlgorithmEdDSA:
		if parts.FullSig == "" {
			return "", fmt.Errorf("ed25519 signature missing full signature")
		}
		return parts.FullSig, nil
	case AlgorithmECDSA:
		return reshapeECDSA(chain, parts)
	}
	return "", fmt.Errorf("unsupported signing algorithm %q", algorithm)
}

func reshapeECDSA(chain Chain, parts SignatureParts) (string, error) {
	if parts.R == "" || parts.S == "" {
		return "", fmt.Errorf("ecdsa signature missing r/s components")
	}

	switch chain {
	case ChainBitcoin:
		r, err := hex.DecodeString(parts.R)
		if err != nil {
			return "", fmt.Errorf("decode r: %w", err)
		}
		s, err := hex.DecodeString(parts.S)
		if err != nil {
			return "", fmt.Errorf("decode s: %w", err)
		}
		recovery := byte(31 + parts.V)
		sig := append([]byte{recovery}, append(r, s...)...)
		return base64.StdEncoding.EncodeToString(sig), nil

	case ChainXRPLedger:
		return strings.ToUpper(parts.R + parts.S), nil

	case ChainEthereum:
		return fmt.Sprintf("%s%s%02x", parts.R, parts.S, parts.V+27), nil

	case ChainCardano:
		// Cardano does not use ECDSA; reaching here means the custody
		// service returned an unexpected algorithm for the chain.
		return "", fmt.Errorf("ecdsa signature not valid for cardano")
	}
	return "", fmt.Errorf("unsupported chain %q", chain)
}
