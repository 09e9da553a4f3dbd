// Package cardano provides the on-chain data provider client and the
// transaction codec boundary for the Cardano chain.
package cardano

import (
	"fmt"
	"math/big"
)

// LovelaceUnit is the asset unit of the chain's base asset.
const LovelaceUnit = "lovelace"

// Asset is one (unit, quantity) pair held by a UTXO. Quantities are
// arbitrary-precision: chain amounts exceed float-safe integer ranges and are
// decimal strings on the wire, converted at the boundary.
type Asset struct {
	Unit     string
	Quantity *big.Int
}

// Utxo is an immutable snapshot of one unspent transaction output.
type Utxo struct {
	Address     string
	TxHash      string
	OutputIndex int
	Assets      []Asset
}

// AmountOf returns the quantity of unit held by the UTXO (zero if absent).
func (u *Utxo) AmountOf(unit string) *big.Int {
	for _, a := range u.Assets {
		if a.Unit == unit {
			return new(big.Int).Set(a.Quantity)
		}
	}
	return new(big.Int)
}

// Lovelace returns the UTXO's base-asset quantity.
func (u *Utxo) Lovelace() *big.Int {
	return u.AmountOf(LovelaceUnit)
}

// Ref returns the canonical "txhash#index" reference.
func (u *Utxo) Ref() string {
	return fmt.Sprintf("%s#%d", u.TxHash, u.OutputIndex)
}

// TxOutput is one output of a planned transaction.
type TxOutput struct {
	Address string
	// Lovelace is the base-asset quantity.
	Lovelace *big.Int
	// TokenUnit/TokenAmount are set when the output carries the reward
	// token; TokenAmount nil or zero means a token-free output.
	TokenUnit   string
	TokenAmount *big.Int
}

// TokenUnit composes the asset unit for a native token: the policy id
// concatenated with the hex-encoded token name.
func TokenUnit(policyID, tokenNameHex string) string {
	return policyID + tokenNameHex
}
