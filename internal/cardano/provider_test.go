package cardano

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUtxoAccessors(t *testing.T) {
	u := Utxo{
		TxHash:      "abc",
		OutputIndex: 3,
		Assets: []Asset{
			{Unit: LovelaceUnit, Quantity: big.NewInt(2_000_000)},
			{Unit: "policy00aa", Quantity: big.NewInt(42)},
		},
	}
	if u.Ref() != "abc#3" {
		t.Fatalf("ref = %q", u.Ref())
	}
	if u.Lovelace().Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("lovelace = %s", u.Lovelace())
	}
	if u.AmountOf("policy00aa").Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("token amount = %s", u.AmountOf("policy00aa"))
	}
	if u.AmountOf("absent").Sign() != 0 {
		t.Fatal("absent unit must be zero")
	}

	// Accessors return copies; mutating one must not alter the UTXO.
	u.AmountOf(LovelaceUnit).SetInt64(0)
	if u.Lovelace().Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatal("AmountOf leaked internal state")
	}
}

func TestTokenUnitComposition(t *testing.T) {
	if got := TokenUnit("policy00", "746f6b656e"); got != "policy00746f6b656e" {
		t.Fatalf("token unit = %q", got)
	}
}

func TestListUtxosDecodesWireQuantities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/addresses/addr1/utxos" {
			t.Errorf("path %q", r.URL.Path)
		}
		if got := r.Header.Get("project_id"); got != "proj-key" {
			t.Errorf("project key header %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"tx_hash":      "aa",
				"output_index": 0,
				"amount": []map[string]string{
					{"unit": "lovelace", "quantity": "5000000"},
					{"unit": "policy00aa", "quantity": "123456789012345678901234567890"},
				},
			},
		})
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{BaseURL: srv.URL, ProjectKey: "proj-key"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	utxos, err := p.ListUtxos(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("list utxos: %v", err)
	}
	if len(utxos) != 1 {
		t.Fatalf("got %d utxos", len(utxos))
	}
	if utxos[0].Address != "addr1" {
		t.Fatalf("address %q", utxos[0].Address)
	}
	if utxos[0].Lovelace().Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("lovelace %s", utxos[0].Lovelace())
	}
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if utxos[0].AmountOf("policy00aa").Cmp(huge) != 0 {
		t.Fatalf("token amount %s lost precision", utxos[0].AmountOf("policy00aa"))
	}
}

func TestListUtxosRejectsMalformedQuantity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tx_hash":"aa","output_index":0,"amount":[{"unit":"lovelace","quantity":"not-a-number"}]}]`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.ListUtxos(context.Background(), "addr1"); err == nil {
		t.Fatal("expected error for malformed quantity")
	}
}

func TestLatestBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/latest" {
			t.Errorf("path %q", r.URL.Path)
		}
		w.Write([]byte(`{"slot":12345,"height":678,"hash":"blockhash"}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	block, err := p.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("latest block: %v", err)
	}
	if block.Slot != 12345 || block.Height != 678 || block.Hash != "blockhash" {
		t.Fatalf("block %+v", block)
	}
}

func TestRestCodecBuildTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx/build" {
			t.Errorf("path %q", r.URL.Path)
		}
		var req struct {
			Inputs []struct {
				TxHash      string `json:"tx_hash"`
				OutputIndex int    `json:"output_index"`
			} `json:"inputs"`
			Outputs []struct {
				Lovelace    string `json:"lovelace"`
				TokenAmount string `json:"token_amount"`
			} `json:"outputs"`
			Fee     string `json:"fee"`
			TTLSlot uint64 `json:"ttl_slot"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Inputs) != 1 || req.Inputs[0].TxHash != "aa" {
			t.Errorf("inputs %+v", req.Inputs)
		}
		if req.Fee != "200000" || req.TTLSlot != 9000 {
			t.Errorf("fee %q ttl %d", req.Fee, req.TTLSlot)
		}
		// A token-free output must omit the token fields entirely.
		if req.Outputs[1].TokenAmount != "" {
			t.Errorf("token-free output carried token amount %q", req.Outputs[1].TokenAmount)
		}
		w.Write([]byte(`{"unsigned_hex":"cbor00","tx_id":"txid00"}`))
	}))
	defer srv.Close()

	codec, err := NewCodec(CodecConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	inputs := []Utxo{{TxHash: "aa", OutputIndex: 0}}
	outputs := []TxOutput{
		{Address: "r", Lovelace: big.NewInt(1_200_000), TokenUnit: "policy00aa", TokenAmount: big.NewInt(10)},
		{Address: "c", Lovelace: big.NewInt(3_000_000)},
	}
	unsignedHex, txID, err := codec.BuildTransfer(context.Background(), inputs, outputs, big.NewInt(200_000), 9000)
	if err != nil {
		t.Fatalf("build transfer: %v", err)
	}
	if unsignedHex != "cbor00" || txID != "txid00" {
		t.Fatalf("got %q %q", unsignedHex, txID)
	}
}

func TestRestCodecAssembleAndSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx/assemble":
			w.Write([]byte(`{"signed_hex":"signed00"}`))
		case "/tx/submit":
			w.Write([]byte(`{"tx_hash":"hash00"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	codec, err := NewCodec(CodecConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	signedHex, err := codec.AssembleWitness(context.Background(), "cbor00", "pub", "sig")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if signedHex != "signed00" {
		t.Fatalf("signed hex %q", signedHex)
	}
	txHash, err := codec.Submit(context.Background(), signedHex)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if txHash != "hash00" {
		t.Fatalf("tx hash %q", txHash)
	}
}
