package tracker

import "time"

// SupplyObservation is one time-stamped supply/price reading for a token.
// Timestamps within a token's series are monotonically non-decreasing.
type SupplyObservation struct {
	Token         string    `json:"token"`
	Timestamp     time.Time `json:"timestamp"`
	Supply        float64   `json:"supply"`
	Price         float64   `json:"price"`
	ChangePct     float64   `json:"supply_change_pct"`
	ForwardFilled bool      `json:"forward_filled,omitempty"`
	First         bool      `json:"first,omitempty"`
}

// TransferRecord is a single on-chain token transfer. Records are only ever
// consumed in aggregate; they are not retained past the velocity window.
type TransferRecord struct {
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
}

// ChainActivity is one trailing-window scan result: the decoded transfers
// plus the on-chain supply read at scan time.
type ChainActivity struct {
	Transfers []TransferRecord
	Supply    float64
}

// VelocityMetric summarizes transfer activity for one token over a window.
type VelocityMetric struct {
	TxCount       int     `json:"transaction_count"`
	UniqueWallets int     `json:"unique_wallets"`
	Volume        float64 `json:"volume"`
	Supply        float64 `json:"token_supply"`
	Ratio         float64 `json:"velocity_ratio"`
	DuplicateTxs  int     `json:"duplicate_txs"`
}

// FlaggedChange is a supply change whose magnitude crossed the configured
// threshold.
type FlaggedChange struct {
	Timestamp time.Time `json:"timestamp"`
	Token     string    `json:"token"`
	ChangePct float64   `json:"supply_change_pct"`
	Supply    float64   `json:"supply"`
	Price     float64   `json:"price"`
}

// WindowChange is the net supply movement inside one report window.
type WindowChange struct {
	WindowStart  time.Time `json:"window_start"`
	Token        string    `json:"token"`
	NetChangePct float64   `json:"net_change_pct"`
	Supply       float64   `json:"supply"`
	Price        float64   `json:"price"`
	Observations int       `json:"observations"`
}

// TokenReport pairs the latest observation with the latest velocity metric
// for one token, plus the windowed supply-change breakdown over the trailing
// velocity window.
type TokenReport struct {
	Supply   SupplyObservation `json:"supply"`
	Velocity VelocityMetric    `json:"velocity"`
	Windows  []WindowChange    `json:"windows,omitempty"`
}

// Report is the per-cycle snapshot every output format is rendered from.
// All renderers must consume the same Report so the numbers agree.
type Report struct {
	CycleID     string                 `json:"cycle_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Tokens      []string               `json:"tokens"`
	ByToken     map[string]TokenReport `json:"by_token"`
	Flagged     []FlaggedChange        `json:"flagged_changes,omitempty"`
}

// Token returns the report entry for a symbol and whether it exists.
func (r *Report) Token(symbol string) (TokenReport, bool) {
	tr, ok := r.ByToken[symbol]
	return tr, ok
}
