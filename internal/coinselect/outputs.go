package coinselect

import (
	"fmt"
	"math/big"

	"github.com/nimbusward/tokengate/internal/cardano"
)

// BuildOutputs constructs the two outputs of a transfer plan from a
// selection: the recipient output carrying the token on the minimum base
// asset, and the change output carrying everything left after the fee.
//
// A fully drained token balance yields a change output holding only base
// asset. That is intentional: it produces a token-free UTXO usable as
// collateral later.
func BuildOutputs(res *Result, recipientAddr, changeAddr string, p Params) ([]cardano.TxOutput, error) {
	if res.AccumulatedToken.Cmp(p.RequiredToken) < 0 {
		return nil, fmt.Errorf("token balance %s is less than requested transfer %s",
			res.AccumulatedToken, p.RequiredToken)
	}

	changeBase := new(big.Int).Sub(res.AccumulatedBase, p.RecipientMinimum)
	changeBase.Sub(changeBase, p.Fee)
	if changeBase.Sign() < 0 {
		return nil, fmt.Errorf("selection base asset %s does not cover recipient minimum %s plus fee %s",
			res.AccumulatedBase, p.RecipientMinimum, p.Fee)
	}

	recipient := cardano.TxOutput{
		Address:     recipientAddr,
		Lovelace:    new(big.Int).Set(p.RecipientMinimum),
		TokenUnit:   p.TokenUnit,
		TokenAmount: new(big.Int).Set(p.RequiredToken),
	}

	change := cardano.TxOutput{
		Address:  changeAddr,
		Lovelace: changeBase,
	}
	if tokenChange := new(big.Int).Sub(res.AccumulatedToken, p.RequiredToken); tokenChange.Sign() > 0 {
		change.TokenUnit = p.TokenUnit
		change.TokenAmount = tokenChange
	}

	return []cardano.TxOutput{recipient, change}, nil
}
