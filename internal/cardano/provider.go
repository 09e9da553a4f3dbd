package cardano

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/nimbusward/tokengate/internal/httputil"
	"github.com/nimbusward/tokengate/internal/metrics"
)

// Provider is the read-only on-chain data source.
type Provider interface {
	ListUtxos(ctx context.Context, address string) ([]Utxo, error)
	LatestBlock(ctx context.Context) (*Block, error)
}

// Block carries the chain-tip fields the planner needs.
type Block struct {
	Slot   uint64 `json:"slot"`
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// RestProvider reads chain data from a Blockfrost-style REST API.
type RestProvider struct {
	http *httputil.Client
}

// ProviderConfig configures a RestProvider.
type ProviderConfig struct {
	BaseURL    string
	ProjectKey string
	Timeout    time.Duration
}

// NewProvider creates a RestProvider.
func NewProvider(cfg ProviderConfig) (*RestProvider, error) {
	headers := map[string]string{}
	if cfg.ProjectKey != "" {
		headers["project_id"] = cfg.ProjectKey
	}
	client, err := httputil.New(httputil.Config{
		Service:    "chain-provider",
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Headers:    headers,
		MaxRetries: 2,
	})
	if err != nil {
		return nil, err
	}
	return &RestProvider{http: client}, nil
}

type wireAmount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type wireUtxo struct {
	Address     string       `json:"address"`
	TxHash      string       `json:"tx_hash"`
	OutputIndex int          `json:"output_index"`
	Amount      []wireAmount `json:"amount"`
}

// ListUtxos returns all UTXOs at address. Wire quantities are decimal
// strings; they are converted to big integers here and nowhere else.
func (p *RestProvider) ListUtxos(ctx context.Context, address string) ([]Utxo, error) {
	var wire []wireUtxo
	if err := p.http.Get(ctx, "/addresses/"+address+"/utxos", &wire); err != nil {
		metrics.RecordAPIRequest("chain-provider", "error")
		return nil, fmt.Errorf("list utxos at %s: %w", address, err)
	}
	metrics.RecordAPIRequest("chain-provider", "ok")

	utxos := make([]Utxo, 0, len(wire))
	for _, w := range wire {
		u := Utxo{
			Address:     address,
			TxHash:      w.TxHash,
			OutputIndex: w.OutputIndex,
		}
		if w.Address != "" {
			u.Address = w.Address
		}
		for _, a := range w.Amount {
			qty, ok := new(big.Int).SetString(a.Quantity, 10)
			if !ok {
				return nil, fmt.Errorf("utxo %s#%d: invalid quantity %q for unit %s", w.TxHash, w.OutputIndex, a.Quantity, a.Unit)
			}
			u.Assets = append(u.Assets, Asset{Unit: a.Unit, Quantity: qty})
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

// LatestBlock returns the chain tip.
func (p *RestProvider) LatestBlock(ctx context.Context) (*Block, error) {
	var block Block
	if err := p.http.Get(ctx, "/blocks/latest", &block); err != nil {
		metrics.RecordAPIRequest("chain-provider", "error")
		return nil, fmt.Errorf("latest block: %w", err)
	}
	metrics.RecordAPIRequest("chain-provider", "ok")
	return &block, nil
}
