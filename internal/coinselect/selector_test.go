package coinselect

import (
	"math/big"
	"testing"

	"github.com/nimbusward/tokengate/internal/cardano"
	"github.com/nimbusward/tokengate/internal/errors"
)

const tokenUnit = "policy00746f6b656e"

func utxo(txHash string, index int, base, token int64) cardano.Utxo {
	u := cardano.Utxo{
		Address:     "addr1",
		TxHash:      txHash,
		OutputIndex: index,
		Assets: []cardano.Asset{
			{Unit: cardano.LovelaceUnit, Quantity: big.NewInt(base)},
		},
	}
	if token > 0 {
		u.Assets = append(u.Assets, cardano.Asset{Unit: tokenUnit, Quantity: big.NewInt(token)})
	}
	return u
}

func params(required, fee, recipientMin, changeMin int64) Params {
	return Params{
		TokenUnit:        tokenUnit,
		RequiredToken:    big.NewInt(required),
		Fee:              big.NewInt(fee),
		RecipientMinimum: big.NewInt(recipientMin),
		ChangeMinimum:    big.NewInt(changeMin),
	}
}

func TestSelectSingleSufficientUtxo(t *testing.T) {
	utxos := []cardano.Utxo{utxo("a", 0, 5_000_000, 2000)}
	res, err := Select(utxos, params(1000, 200_000, 1_200_000, 1_200_000))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Selected) != 1 {
		t.Fatalf("expected 1 input, got %d", len(res.Selected))
	}
	if res.AccumulatedToken.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("accumulated token %s", res.AccumulatedToken)
	}
	if res.AccumulatedBase.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("accumulated base %s", res.AccumulatedBase)
	}
}

func TestSelectPrefersLargerTokenUtxos(t *testing.T) {
	utxos := []cardano.Utxo{
		utxo("small", 0, 2_000_000, 100),
		utxo("large", 0, 2_000_000, 5000),
		utxo("mid", 0, 2_000_000, 1000),
	}
	res, err := Select(utxos, params(4000, 100_000, 1_000_000, 500_000))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Selected) != 1 || res.Selected[0].TxHash != "large" {
		t.Fatalf("expected the single largest token utxo, got %+v", res.Selected)
	}
}

func TestSelectNoTokenUtxosFailsWithShortfall(t *testing.T) {
	utxos := []cardano.Utxo{utxo("pure", 0, 10_000_000, 0)}
	_, err := Select(utxos, params(1000, 200_000, 1_200_000, 1_200_000))
	if err == nil {
		t.Fatal("expected insufficient funds")
	}
	var fundsErr *errors.InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected InsufficientFundsError, got %T", err)
	}
	if fundsErr.TokenShortfall.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected token shortfall 1000, got %s", fundsErr.TokenShortfall)
	}
}

func TestSelectReportsExactShortfalls(t *testing.T) {
	utxos := []cardano.Utxo{utxo("a", 0, 1_000_000, 300)}
	_, err := Select(utxos, params(1000, 200_000, 1_200_000, 1_200_000))
	var fundsErr *errors.InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if fundsErr.TokenShortfall.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("token shortfall %s, want 700", fundsErr.TokenShortfall)
	}
	// Required base: 1_200_000 + 200_000 + 1_200_000 = 2_600_000.
	if fundsErr.BaseShortfall.Cmp(big.NewInt(1_600_000)) != 0 {
		t.Fatalf("base shortfall %s, want 1600000", fundsErr.BaseShortfall)
	}
}

// TestSelectPhaseTwoPullsPureBaseUtxo exercises the scenario where the
// token-bearing input funds the transfer but not the change minimum, forcing
// the second selection phase to pull a pure-base UTXO.
func TestSelectPhaseTwoPullsPureBaseUtxo(t *testing.T) {
	utxos := []cardano.Utxo{
		utxo("token", 0, 2_000_000, 5000),
		utxo("pure", 0, 3_000_000, 0),
	}
	p := params(1000, 200_000, 1_200_000, 1_200_000)

	res, err := Select(utxos, p)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Selected) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(res.Selected))
	}

	outputs, err := BuildOutputs(res, "addr_recipient", "addr_change", p)
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	recipient, change := outputs[0], outputs[1]
	if recipient.TokenAmount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("recipient token %s, want 1000", recipient.TokenAmount)
	}
	if recipient.Lovelace.Cmp(big.NewInt(1_200_000)) != 0 {
		t.Fatalf("recipient base %s, want 1200000", recipient.Lovelace)
	}
	if change.TokenAmount.Cmp(big.NewInt(4000)) != 0 {
		t.Fatalf("change token %s, want 4000", change.TokenAmount)
	}
	// 5_000_000 - 1_200_000 - 200_000 = 3_600_000.
	if change.Lovelace.Cmp(big.NewInt(3_600_000)) != 0 {
		t.Fatalf("change base %s, want 3600000", change.Lovelace)
	}
}

func TestOutputConservation(t *testing.T) {
	utxos := []cardano.Utxo{
		utxo("a", 0, 4_000_000, 1500),
		utxo("b", 1, 2_500_000, 700),
	}
	p := params(2000, 180_000, 1_200_000, 1_000_000)

	res, err := Select(utxos, p)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	outputs, err := BuildOutputs(res, "addr_r", "addr_c", p)
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	recipient, change := outputs[0], outputs[1]

	tokenOut := new(big.Int).Add(recipient.TokenAmount, tokenOrZero(change))
	if tokenOut.Cmp(res.AccumulatedToken) != 0 {
		t.Fatalf("token not conserved: out %s, in %s", tokenOut, res.AccumulatedToken)
	}

	baseOut := new(big.Int).Add(recipient.Lovelace, change.Lovelace)
	wantBase := new(big.Int).Sub(res.AccumulatedBase, p.Fee)
	if baseOut.Cmp(wantBase) != 0 {
		t.Fatalf("base not conserved: out %s, want %s", baseOut, wantBase)
	}
}

func TestBuildOutputsDrainedTokenOmitsTokenChange(t *testing.T) {
	utxos := []cardano.Utxo{utxo("a", 0, 5_000_000, 1000)}
	p := params(1000, 200_000, 1_200_000, 1_200_000)

	res, err := Select(utxos, p)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	outputs, err := BuildOutputs(res, "addr_r", "addr_c", p)
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	change := outputs[1]
	if change.TokenAmount != nil {
		t.Fatalf("expected token-free change output, got %s", change.TokenAmount)
	}
	if change.Lovelace.Sign() <= 0 {
		t.Fatal("expected base asset in change output")
	}
}

func TestBuildOutputsRejectsOverdraw(t *testing.T) {
	res := &Result{
		Selected:         []cardano.Utxo{utxo("a", 0, 5_000_000, 500)},
		AccumulatedBase:  big.NewInt(5_000_000),
		AccumulatedToken: big.NewInt(500),
	}
	p := params(1000, 200_000, 1_200_000, 1_200_000)
	if _, err := BuildOutputs(res, "addr_r", "addr_c", p); err == nil {
		t.Fatal("expected error for token overdraw")
	}
}

func tokenOrZero(out cardano.TxOutput) *big.Int {
	if out.TokenAmount == nil {
		return new(big.Int)
	}
	return out.TokenAmount
}
