package cardano

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/nimbusward/tokengate/internal/httputil"
)

// Codec is the transaction-construction boundary. Serialization, fee body
// encoding and witness assembly live behind it; the orchestrator only ever
// sees transaction ids and opaque hex blobs.
type Codec interface {
	// BuildTransfer assembles an unsigned transaction spending inputs into
	// outputs with the given fee and TTL slot, returning the CBOR hex and
	// the transaction id to sign.
	BuildTransfer(ctx context.Context, inputs []Utxo, outputs []TxOutput, fee *big.Int, ttlSlot uint64) (unsignedHex, txID string, err error)
	// AssembleWitness attaches an ed25519 witness (public key + signature,
	// both hex) to an unsigned transaction.
	AssembleWitness(ctx context.Context, unsignedHex, publicKeyHex, signatureHex string) (signedHex string, err error)
	// Submit broadcasts raw signed transaction bytes, returning the hash.
	Submit(ctx context.Context, signedHex string) (txHash string, err error)
}

// RestCodec delegates transaction construction to the serialization sidecar.
type RestCodec struct {
	http *httputil.Client
}

// CodecConfig configures a RestCodec.
type CodecConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewCodec creates a RestCodec.
func NewCodec(cfg CodecConfig) (*RestCodec, error) {
	client, err := httputil.New(httputil.Config{
		Service: "tx-codec",
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &RestCodec{http: client}, nil
}

type codecInput struct {
	TxHash      string `json:"tx_hash"`
	OutputIndex int    `json:"output_index"`
}

type codecOutput struct {
	Address     string `json:"address"`
	Lovelace    string `json:"lovelace"`
	TokenUnit   string `json:"token_unit,omitempty"`
	TokenAmount string `json:"token_amount,omitempty"`
}

// BuildTransfer implements Codec.
func (c *RestCodec) BuildTransfer(ctx context.Context, inputs []Utxo, outputs []TxOutput, fee *big.Int, ttlSlot uint64) (string, string, error) {
	req := struct {
		Inputs  []codecInput  `json:"inputs"`
		Outputs []codecOutput `json:"outputs"`
		Fee     string        `json:"fee"`
		TTLSlot uint64        `json:"ttl_slot"`
	}{
		Fee:     fee.String(),
		TTLSlot: ttlSlot,
	}
	for _, in := range inputs {
		req.Inputs = append(req.Inputs, codecInput{TxHash: in.TxHash, OutputIndex: in.OutputIndex})
	}
	for _, out := range outputs {
		co := codecOutput{Address: out.Address, Lovelace: out.Lovelace.String()}
		if out.TokenAmount != nil && out.TokenAmount.Sign() > 0 {
			co.TokenUnit = out.TokenUnit
			co.TokenAmount = out.TokenAmount.String()
		}
		req.Outputs = append(req.Outputs, co)
	}

	var resp struct {
		UnsignedHex string `json:"unsigned_hex"`
		TxID        string `json:"tx_id"`
	}
	if err := c.http.Post(ctx, "/tx/build", req, &resp); err != nil {
		return "", "", fmt.Errorf("build transfer: %w", err)
	}
	return resp.UnsignedHex, resp.TxID, nil
}

// AssembleWitness implements Codec.
func (c *RestCodec) AssembleWitness(ctx context.Context, unsignedHex, publicKeyHex, signatureHex string) (string, error) {
	req := struct {
		UnsignedHex string `json:"unsigned_hex"`
		PublicKey   string `json:"public_key"`
		Signature   string `json:"signature"`
	}{unsignedHex, publicKeyHex, signatureHex}

	var resp struct {
		SignedHex string `json:"signed_hex"`
	}
	if err := c.http.Post(ctx, "/tx/assemble", req, &resp); err != nil {
		return "", fmt.Errorf("assemble witness: %w", err)
	}
	return resp.SignedHex, nil
}

// Submit implements Codec.
func (c *RestCodec) Submit(ctx context.Context, signedHex string) (string, error) {
	req := struct {
		SignedHex string `json:"signed_hex"`
	}{signedHex}

	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	if err := c.http.Post(ctx, "/tx/submit", req, &resp); err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	return resp.TxHash, nil
}
