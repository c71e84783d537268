// Package node is a client for the HTTP API of a TRON full node.
package node

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Block is the head block of the chain.
type Block struct {
	Number    int64
	ID        []byte
	Timestamp int64
}

// BroadcastResult is the answer of the node to a broadcast.
type BroadcastResult struct {
	OK      bool
	Code    string
	Message string
	TxID    string
}

// Transaction is what the node knows about a transaction id.
type Transaction struct {
	Found       bool
	ContractRet string
}

// TransactionInfo is the execution receipt of a transaction in a block.
type TransactionInfo struct {
	Found       bool
	BlockNumber int64
	Fee         amount.Micro
	NetUsage    int64
	EnergyUsage int64
	Failed      bool
	Message     string
}

// Account is the balance of an account.
type Account struct {
	Exists  bool
	Balance amount.Micro
}

// Config is what's needed to construct a client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client talks to a single full node.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New constructs a client for the endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("node endpoint is required")
	}

	c := Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
	}

	return &c, nil
}

// Endpoint returns the base url of the node.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// CreateTransaction asks the node to create an unsigned transfer.
func (c *Client) CreateTransaction(ctx context.Context, from, to address.Address, amt amount.Micro) (wire.Transaction, error) {
	req := struct {
		Owner   string `json:"owner_address"`
		To      string `json:"to_address"`
		Amount  int64  `json:"amount"`
		Visible bool   `json:"visible"`
	}{
		Owner:   from.String(),
		To:      to.String(),
		Amount:  int64(amt),
		Visible: true,
	}

	var resp struct {
		TxID       string `json:"txID"`
		RawDataHex string `json:"raw_data_hex"`
		Error      string `json:"Error"`
	}
	if err := c.send(ctx, "/wallet/createtransaction", req, &resp); err != nil {
		return wire.Transaction{}, err
	}
	if resp.Error != "" {
		return wire.Transaction{}, payerr.NodeReject(resp.Error)
	}

	raw, err := hex.DecodeString(resp.RawDataHex)
	if err != nil || len(raw) == 0 {
		return wire.Transaction{}, payerr.TransportErr(payerr.TransportOther, 0, fmt.Errorf("invalid raw_data_hex"))
	}

	return wire.Transaction{RawData: raw}, nil
}

// NowBlock returns the head block.
func (c *Client) NowBlock(ctx context.Context) (Block, error) {
	var resp struct {
		BlockID     string `json:"blockID"`
		BlockHeader struct {
			RawData struct {
				Number    int64 `json:"number"`
				Timestamp int64 `json:"timestamp"`
			} `json:"raw_data"`
		} `json:"block_header"`
	}
	if err := c.send(ctx, "/wallet/getnowblock", struct{}{}, &resp); err != nil {
		return Block{}, err
	}

	id, err := hex.DecodeString(resp.BlockID)
	if err != nil || len(id) != 32 {
		return Block{}, payerr.TransportErr(payerr.TransportOther, 0, fmt.Errorf("invalid block id %q", resp.BlockID))
	}

	b := Block{
		Number:    resp.BlockHeader.RawData.Number,
		ID:        id,
		Timestamp: resp.BlockHeader.RawData.Timestamp,
	}

	return b, nil
}

// Broadcast submits a signed transaction.
func (c *Client) Broadcast(ctx context.Context, tx wire.Transaction) (BroadcastResult, error) {
	req := struct {
		Transaction string `json:"transaction"`
	}{
		Transaction: hex.EncodeToString(tx.Marshal()),
	}

	var resp struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
		TxID    string `json:"txid"`
	}
	if err := c.send(ctx, "/wallet/broadcasthex", req, &resp); err != nil {
		return BroadcastResult{}, err
	}

	res := BroadcastResult{
		OK:      resp.Result,
		Code:    resp.Code,
		Message: decodeMessage(resp.Message),
		TxID:    resp.TxID,
	}

	return res, nil
}

// TransactionByID looks a transaction up in the ledger.
func (c *Client) TransactionByID(ctx context.Context, txid string) (Transaction, error) {
	var resp struct {
		TxID string `json:"txID"`
		Ret  []struct {
			ContractRet string `json:"contractRet"`
		} `json:"ret"`
	}
	if err := c.send(ctx, "/wallet/gettransactionbyid", byID(txid), &resp); err != nil {
		return Transaction{}, err
	}
	if resp.TxID == "" {
		return Transaction{}, nil
	}

	tx := Transaction{Found: true}
	if len(resp.Ret) > 0 {
		tx.ContractRet = resp.Ret[0].ContractRet
	}

	return tx, nil
}

// TransactionInfoByID returns the receipt of a transaction included in a
// block.
func (c *Client) TransactionInfoByID(ctx context.Context, txid string) (TransactionInfo, error) {
	var resp struct {
		ID          string `json:"id"`
		Fee         int64  `json:"fee"`
		BlockNumber int64  `json:"blockNumber"`
		Receipt     struct {
			NetUsage    int64  `json:"net_usage"`
			EnergyUsage int64  `json:"energy_usage"`
			Result      string `json:"result"`
		} `json:"receipt"`
		Result     string `json:"result"`
		ResMessage string `json:"resMessage"`
	}
	if err := c.send(ctx, "/wallet/gettransactioninfobyid", byID(txid), &resp); err != nil {
		return TransactionInfo{}, err
	}
	if resp.ID == "" {
		return TransactionInfo{}, nil
	}

	info := TransactionInfo{
		Found:       true,
		BlockNumber: resp.BlockNumber,
		Fee:         amount.Micro(resp.Fee),
		NetUsage:    resp.Receipt.NetUsage,
		EnergyUsage: resp.Receipt.EnergyUsage,
		Failed:      resp.Result == "FAILED",
		Message:     decodeMessage(resp.ResMessage),
	}

	return info, nil
}

// Account returns the balance of the account. An account the ledger has
// never seen doesn't exist.
func (c *Client) Account(ctx context.Context, a address.Address) (Account, error) {
	req := struct {
		Address string `json:"address"`
		Visible bool   `json:"visible"`
	}{
		Address: a.String(),
		Visible: true,
	}

	var resp struct {
		Address string `json:"address"`
		Balance int64  `json:"balance"`
	}
	if err := c.send(ctx, "/wallet/getaccount", req, &resp); err != nil {
		return Account{}, err
	}
	if resp.Address == "" {
		return Account{}, nil
	}

	return Account{Exists: true, Balance: amount.Micro(resp.Balance)}, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func byID(txid string) any {
	return struct {
		Value string `json:"value"`
	}{
		Value: txid,
	}
}

// send posts dataSend to the path and decodes the answer into dataRcv.
// Every failure is returned as a classified transport error.
func (c *Client) send(ctx context.Context, path string, dataSend any, dataRcv any) error {
	data, err := json.Marshal(dataSend)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return payerr.TransportErr(payerr.TransportOther, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return payerr.TransportErr(payerr.TransportAuth, resp.StatusCode, nil)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return payerr.TransportErr(payerr.TransportOther, resp.StatusCode, errors.New(strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(dataRcv); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return payerr.FromContext(ctxErr)
		}
		return payerr.TransportErr(payerr.TransportOther, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}

	return nil
}

func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return payerr.FromContext(ctxErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return payerr.TransportErr(payerr.TransportTimeout, 0, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return payerr.TransportErr(payerr.TransportUnreachable, 0, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return payerr.TransportErr(payerr.TransportUnreachable, 0, err)
	}

	return payerr.TransportErr(payerr.TransportOther, 0, err)
}

// decodeMessage returns the text of a hex encoded node message. Messages
// that aren't hex are returned as is.
func decodeMessage(msg string) string {
	b, err := hex.DecodeString(msg)
	if err != nil || !utf8.Valid(b) {
		return msg
	}
	return string(b)
}
