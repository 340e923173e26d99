package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/config"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

const (
	// keccak256("Transfer(address,address,uint256)")
	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	// 4-byte selector of totalSupply()
	totalSupplySelector = "0x18160ddd"

	// Mainnet averages roughly 15 seconds per block, so a 24h trailing
	// window is about 5760 blocks.
	secondsPerBlock = 15
	blocksPerDay    = 5760
	blockRangeMin   = 5000
	blockRangeMax   = 6500
)

// EthRPC reads ERC-20 transfer activity and on-chain supply from an Ethereum
// JSON-RPC node.
type EthRPC struct {
	client  *Client
	nodeURL string
	logger  *slog.Logger
}

func NewEthRPC(client *Client, nodeURL string, logger *slog.Logger) *EthRPC {
	return &EthRPC{client: client, nodeURL: nodeURL, logger: logger}
}

func (e *EthRPC) Name() string { return "ethrpc" }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcLog struct {
	TxHash      string   `json:"transactionHash"`
	BlockNumber string   `json:"blockNumber"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
}

func (e *EthRPC) call(ctx context.Context, method string, params []any, result any) error {
	var resp struct {
		Result any       `json:"result"`
		Error  *rpcError `json:"error"`
	}
	resp.Result = result

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := e.client.PostJSON(ctx, e.nodeURL, req, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// BlockNumber returns the current head block.
func (e *EthRPC) BlockNumber(ctx context.Context) (uint64, error) {
	var hexNum string
	if err := e.call(ctx, "eth_blockNumber", []any{}, &hexNum); err != nil {
		return 0, err
	}
	return parseHexUint(hexNum)
}

// TotalSupply reads totalSupply() from the token contract, scaled down by
// the token's decimals.
func (e *EthRPC) TotalSupply(ctx context.Context, tok config.Token) (float64, error) {
	params := []any{
		map[string]string{"to": tok.Contract, "data": totalSupplySelector},
		"latest",
	}
	var hexVal string
	if err := e.call(ctx, "eth_call", params, &hexVal); err != nil {
		return 0, err
	}
	return parseHexAmount(hexVal, tok.Decimals)
}

// FetchActivity scans the 24h trailing block range for Transfer events of
// the token and reads its on-chain supply. Zero-value transfers are skipped
// and repeated transaction hashes are dropped with a warning; both decisions
// match how the velocity figures are interpreted downstream.
func (e *EthRPC) FetchActivity(ctx context.Context, tok config.Token) (tracker.ChainActivity, error) {
	head, err := e.BlockNumber(ctx)
	if err != nil {
		return tracker.ChainActivity{}, fmt.Errorf("activity %s: %w", tok.Symbol, err)
	}
	if head < blocksPerDay {
		return tracker.ChainActivity{}, fmt.Errorf("activity %s: head block %d below window size", tok.Symbol, head)
	}
	start := head - blocksPerDay
	e.checkBlockRange(ctx, tok.Symbol, start, head)

	filter := map[string]any{
		"fromBlock": fmt.Sprintf("0x%x", start),
		"toBlock":   fmt.Sprintf("0x%x", head),
		"address":   tok.Contract,
		"topics":    []string{transferTopic},
	}
	var logs []rpcLog
	if err := e.call(ctx, "eth_getLogs", []any{filter}, &logs); err != nil {
		return tracker.ChainActivity{}, fmt.Errorf("activity %s: %w", tok.Symbol, err)
	}

	supply, err := e.TotalSupply(ctx, tok)
	if err != nil {
		return tracker.ChainActivity{}, fmt.Errorf("activity %s: %w", tok.Symbol, err)
	}

	now := time.Now()
	seenHashes := make(map[string]struct{}, len(logs))
	transfers := make([]tracker.TransferRecord, 0, len(logs))
	for _, lg := range logs {
		if _, dup := seenHashes[lg.TxHash]; dup {
			e.logger.Warn("duplicate transaction in log response", "token", tok.Symbol, "tx", lg.TxHash)
			continue
		}
		seenHashes[lg.TxHash] = struct{}{}

		rec, err := e.decodeTransfer(lg, tok, head, now)
		if err != nil {
			e.logger.Warn("skipping malformed transfer log", "token", tok.Symbol, "tx", lg.TxHash, "error", err)
			continue
		}
		if rec.Amount == 0 {
			continue
		}
		transfers = append(transfers, rec)
	}

	return tracker.ChainActivity{Transfers: transfers, Supply: supply}, nil
}

func (e *EthRPC) decodeTransfer(lg rpcLog, tok config.Token, head uint64, now time.Time) (tracker.TransferRecord, error) {
	if len(lg.Topics) < 3 {
		return tracker.TransferRecord{}, fmt.Errorf("expected 3 topics, got %d", len(lg.Topics))
	}
	amount, err := parseHexAmount(lg.Data, tok.Decimals)
	if err != nil {
		return tracker.TransferRecord{}, err
	}

	ts := now
	if block, err := parseHexUint(lg.BlockNumber); err == nil && block <= head {
		ts = now.Add(-time.Duration(head-block) * secondsPerBlock * time.Second)
	}

	return tracker.TransferRecord{
		Token:     tok.Symbol,
		Timestamp: ts,
		From:      addressFromTopic(lg.Topics[1]),
		To:        addressFromTopic(lg.Topics[2]),
		Amount:    amount,
	}, nil
}

// checkBlockRange warns when the chain's observed block rate means the fixed
// window covers meaningfully more or less than 24 hours. Best-effort: a
// failed timestamp lookup skips the check.
func (e *EthRPC) checkBlockRange(ctx context.Context, symbol string, start, head uint64) {
	startTs, err := e.blockTimestamp(ctx, start)
	if err != nil {
		e.logger.Debug("block range check skipped", "token", symbol, "error", err)
		return
	}
	headTs, err := e.blockTimestamp(ctx, head)
	if err != nil {
		e.logger.Debug("block range check skipped", "token", symbol, "error", err)
		return
	}
	est := estimateDailyBlocks(startTs, headTs)
	if est > 0 && (est < blockRangeMin || est > blockRangeMax) {
		e.logger.Warn("daily block estimate outside expected bounds",
			"token", symbol, "estimated_blocks", int(est), "window_blocks", blocksPerDay)
	}
}

// blockTimestamp reads the timestamp field of a block header.
func (e *EthRPC) blockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	var blk struct {
		Timestamp string `json:"timestamp"`
	}
	if err := e.call(ctx, "eth_getBlockByNumber", []any{fmt.Sprintf("0x%x", number), false}, &blk); err != nil {
		return 0, err
	}
	return parseHexUint(blk.Timestamp)
}

// estimateDailyBlocks projects the chain's 24h block count from the time the
// scanned window actually took. Returns 0 when the timestamps are unusable.
func estimateDailyBlocks(startTs, headTs uint64) float64 {
	if headTs <= startTs {
		return 0
	}
	return float64(blocksPerDay) * 86400 / float64(headTs-startTs)
}

// addressFromTopic extracts the address from a 32-byte indexed topic.
func addressFromTopic(topic string) string {
	t := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(t) < 40 {
		return "0x" + t
	}
	return "0x" + t[len(t)-40:]
}

func parseHexUint(s string) (uint64, error) {
	n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex number %q", s)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("hex number %q overflows uint64", s)
	}
	return n.Uint64(), nil
}

// parseHexAmount converts a hex-encoded uint256 into a float scaled down by
// the token's decimals.
func parseHexAmount(s string, decimals int) (float64, error) {
	raw := strings.TrimPrefix(s, "0x")
	if raw == "" {
		return 0, fmt.Errorf("empty hex amount")
	}
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex amount %q", s)
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	val := new(big.Float).Quo(new(big.Float).SetInt(n), scale)
	f, _ := val.Float64()
	return f, nil
}
