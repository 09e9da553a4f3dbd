// Package coinselect chooses UTXOs and constructs outputs for a native-token
// transfer under Cardano's minimum-ADA-per-output constraint.
//
// Selection is two-phase greedy: first token-rich UTXOs by descending token
// quantity (fewer, larger inputs keep the transaction small), then a
// base-asset top-up pass. It either returns a fully funded selection or fails
// with the exact shortfall; a silently under-funded plan is never produced.
package coinselect

import (
	"math/big"
	"sort"

	"github.com/nimbusward/tokengate/internal/cardano"
	"github.com/nimbusward/tokengate/internal/errors"
)

// Params are the funding requirements for one transfer.
type Params struct {
	// TokenUnit is the target asset unit (policy id ++ hex token name).
	TokenUnit string
	// RequiredToken is the token amount to transfer.
	RequiredToken *big.Int
	// Fee is the fee estimate for the planned transaction.
	Fee *big.Int
	// RecipientMinimum is the minimum base asset attached to the recipient
	// output.
	RecipientMinimum *big.Int
	// ChangeMinimum is the minimum base asset required in the change output.
	ChangeMinimum *big.Int
}

// Result is a sufficient selection. Invariant: AccumulatedToken ≥
// RequiredToken and AccumulatedBase ≥ RecipientMinimum + Fee + ChangeMinimum.
type Result struct {
	Selected         []cardano.Utxo
	AccumulatedBase  *big.Int
	AccumulatedToken *big.Int
}

// Select picks UTXOs from utxos meeting the requirements of p.
func Select(utxos []cardano.Utxo, p Params) (*Result, error) {
	baseTarget := new(big.Int).Add(p.RecipientMinimum, p.Fee)
	fullTarget := new(big.Int).Add(baseTarget, p.ChangeMinimum)

	// Phase 1: token-bearing UTXOs, largest token quantity first.
	tokenUtxos := filterToken(utxos, p.TokenUnit)
	if len(tokenUtxos) == 0 {
		return nil, &errors.InsufficientFundsError{
			Address:           addressOf(utxos),
			TokenShortfall:    new(big.Int).Set(p.RequiredToken),
			BaseShortfall:     new(big.Int),
			RequiredToken:     p.RequiredToken,
			RequiredBaseAsset: fullTarget,
		}
	}
	sortByUnitDesc(tokenUtxos, p.TokenUnit)

	res := &Result{
		AccumulatedBase:  new(big.Int),
		AccumulatedToken: new(big.Int),
	}
	selected := make(map[string]bool)

	for _, u := range tokenUtxos {
		if res.AccumulatedToken.Cmp(p.RequiredToken) >= 0 && res.AccumulatedBase.Cmp(baseTarget) >= 0 {
			break
		}
		add(res, u, p.TokenUnit)
		selected[u.Ref()] = true
	}

	// Phase 2: top up base asset from the remaining UTXOs, largest first,
	// until the change minimum is also covered.
	if res.AccumulatedBase.Cmp(fullTarget) < 0 {
		rest := make([]cardano.Utxo, 0, len(utxos))
		for _, u := range utxos {
			if !selected[u.Ref()] {
				rest = append(rest, u)
			}
		}
		sortByUnitDesc(rest, cardano.LovelaceUnit)
		for _, u := range rest {
			if res.AccumulatedBase.Cmp(fullTarget) >= 0 {
				break
			}
			add(res, u, p.TokenUnit)
			selected[u.Ref()] = true
		}
	}

	tokenShort := shortfall(p.RequiredToken, res.AccumulatedToken)
	baseShort := shortfall(fullTarget, res.AccumulatedBase)
	if tokenShort.Sign() > 0 || baseShort.Sign() > 0 {
		return nil, &errors.InsufficientFundsError{
			Address:           addressOf(utxos),
			TokenShortfall:    tokenShort,
			BaseShortfall:     baseShort,
			RequiredToken:     p.RequiredToken,
			RequiredBaseAsset: fullTarget,
		}
	}
	return res, nil
}

func add(res *Result, u cardano.Utxo, tokenUnit string) {
	res.Selected = append(res.Selected, u)
	res.AccumulatedBase.Add(res.AccumulatedBase, u.Lovelace())
	res.AccumulatedToken.Add(res.AccumulatedToken, u.AmountOf(tokenUnit))
}

func filterToken(utxos []cardano.Utxo, unit string) []cardano.Utxo {
	out := make([]cardano.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.AmountOf(unit).Sign() > 0 {
			out = append(out, u)
		}
	}
	return out
}

// sortByUnitDesc orders by unit quantity descending, tie-broken by reference
// so selection is deterministic.
func sortByUnitDesc(utxos []cardano.Utxo, unit string) {
	sort.SliceStable(utxos, func(i, j int) bool {
		cmp := utxos[i].AmountOf(unit).Cmp(utxos[j].AmountOf(unit))
		if cmp != 0 {
			return cmp > 0
		}
		return utxos[i].Ref() < utxos[j].Ref()
	})
}

func shortfall(required, have *big.Int) *big.Int {
	d := new(big.Int).Sub(required, have)
	if d.Sign() < 0 {
		return new(big.Int)
	}
	return d
}

func addressOf(utxos []cardano.Utxo) string {
	if len(utxos) > 0 {
		return utxos[0].Address
	}
	return ""
}
