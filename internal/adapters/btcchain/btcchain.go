// Package btcchain adapts a Bitcoin Core RPC connection to the
// capabilities.ChainClient contract the executor calls into.
package btcchain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/orbitalfi/intents-core/internal/bitcoin"
	"github.com/orbitalfi/intents-core/internal/capabilities"
)

// Config dials a single Bitcoin Core node over RPC.
type Config struct {
	ChainID uint64
	Host    string
	User    string
	Pass    string
}

// Client implements capabilities.ChainClient on top of the Bitcoin Core RPC
// wrapper: tx submission and confirmation polling ride its underlying RPC
// connection, receipts are synthesized since Bitcoin has no receipt concept.
type Client struct {
	chainID uint64
	inner   *bitcoin.Client
}

// Dial connects to the configured node (loading a watch-only wallet along
// the way, per bitcoin.NewClient) and verifies it responds before returning.
func Dial(cfg Config) (*Client, error) {
	inner, err := bitcoin.NewClient(bitcoin.Config{Host: cfg.Host, User: cfg.User, Pass: cfg.Pass})
	if err != nil {
		return nil, fmt.Errorf("btcchain: dial: %w", err)
	}
	return &Client{chainID: cfg.ChainID, inner: inner}, nil
}

// Shutdown releases the underlying RPC connection.
func (c *Client) Shutdown() { c.inner.Shutdown() }

// ChainID returns the configured chain identifier for this client.
func (c *Client) ChainID() uint64 { return c.chainID }

// SendTx broadcasts a raw signed transaction and returns its txid.
func (c *Client) SendTx(ctx context.Context, tx []byte) ([]byte, error) {
	rawHex := hex.EncodeToString(tx)
	raw, err := c.inner.RPC.RawRequest("sendrawtransaction", []json.RawMessage{json.RawMessage(`"` + rawHex + `"`)})
	if err != nil {
		return nil, fmt.Errorf("btcchain: send tx: %w", err)
	}
	var txidStr string
	if err := decodeJSONString(raw, &txidStr); err != nil {
		return nil, fmt.Errorf("btcchain: send tx: %w", err)
	}
	txid, err := chainhash.NewHashFromStr(txidStr)
	if err != nil {
		return nil, fmt.Errorf("btcchain: send tx: %w", err)
	}
	return txid[:], nil
}

// WaitConfirmations polls until txHash reaches n confirmations or the
// context is cancelled, matching the poll-based suspension style the
// executor uses for bridge confirmation.
func (c *Client) WaitConfirmations(ctx context.Context, txHash []byte, n uint64) error {
	hash, err := chainhash.NewHash(txHash)
	if err != nil {
		return fmt.Errorf("btcchain: invalid tx hash: %w", err)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		tx, err := c.inner.GetRawTransaction(hash)
		if err == nil && uint64(tx.Confirmations) >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Call has no general-purpose analog on Bitcoin; this chain exposes no
// contract call surface, so it always reports unsupported.
func (c *Client) Call(ctx context.Context, request []byte) ([]byte, error) {
	return nil, fmt.Errorf("btcchain: Call is unsupported on this chain")
}

// GetBlockNumber returns the current chain tip height.
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	count, err := c.inner.RPC.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("btcchain: get block count: %w", err)
	}
	return uint64(count), nil
}

// GetReceipt synthesizes a capabilities.Receipt from a verbose transaction
// lookup; Bitcoin has no receipt concept, so success is inferred from the
// transaction being confirmed at all.
func (c *Client) GetReceipt(ctx context.Context, txHash []byte) (*capabilities.Receipt, error) {
	hash, err := chainhash.NewHash(txHash)
	if err != nil {
		return nil, fmt.Errorf("btcchain: invalid tx hash: %w", err)
	}
	tx, err := c.inner.GetRawTransaction(hash)
	if err != nil {
		return nil, fmt.Errorf("btcchain: get raw transaction: %w", err)
	}

	var blockNumber uint64
	if tx.BlockHash != "" {
		blockHash, err := chainhash.NewHashFromStr(tx.BlockHash)
		if err == nil {
			if verbose, err := c.inner.GetBlockVerbose(blockHash); err == nil {
				blockNumber = uint64(verbose.Height)
			}
		}
	}

	var recipient []byte
	for _, vout := range tx.Vout {
		if len(vout.ScriptPubKey.Addresses) > 0 {
			recipient = []byte(vout.ScriptPubKey.Addresses[0])
			break
		}
	}

	return &capabilities.Receipt{
		TxHash:        txHash,
		BlockNumber:   blockNumber,
		Confirmations: uint64(tx.Confirmations),
		Success:       tx.Confirmations > 0,
		Recipient:     recipient,
	}, nil
}

// assumedTxVBytes is a rough single-input single-output transaction size
// used to turn a sat/vbyte fee rate into a total cost estimate.
const assumedTxVBytes = 250

// EstimateGasCost converts the next-block sat/vbyte fee estimate into a
// total-cost figure for an assumed-size transaction.
func (c *Client) EstimateGasCost(ctx context.Context) (uint64, error) {
	satPerVByte, err := c.inner.EstimateSmartFeeSatVB(1)
	if err != nil {
		return 0, fmt.Errorf("btcchain: estimate fee: %w", err)
	}
	return uint64(satPerVByte * assumedTxVBytes), nil
}

func decodeJSONString(raw []byte, out *string) error {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		*out = s[1 : len(s)-1]
		return nil
	}
	return fmt.Errorf("btcchain: unexpected raw response %q", s)
}
