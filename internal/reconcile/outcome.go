package reconcile

// Status is the terminal state of one reconciled intent.
type Status string

const (
	// StatusReconciled: ledger confirmed and every off-chain write landed.
	StatusReconciled Status = "reconciled"
	// StatusReconciledWithDrift: ledger confirmed but the off-chain mirror is
	// stale. The operation still counts as a success; the caller should offer
	// a manual resync.
	StatusReconciledWithDrift Status = "reconciled_with_drift"
	// StatusAborted: the ledger call itself failed or was rejected before
	// confirmation. No off-chain state was touched.
	StatusAborted Status = "aborted"
)

// Outcome is the transient result of driving one intent. It is never
// persisted; it only carries what the caller needs for messaging and retry
// eligibility.
type Outcome struct {
	Status              Status   `json:"status"`
	LedgerSucceeded     bool     `json:"ledger_succeeded"`
	ProjectionSucceeded bool     `json:"projection_succeeded"`
	TransactionHash     string   `json:"transaction_hash,omitempty"`
	ResolvedID          string   `json:"resolved_id,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
	ErrorDetail         string   `json:"error_detail,omitempty"`
}

func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}
