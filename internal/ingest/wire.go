package ingest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/idhash"
)

// wireTransaction is the JSON shape transaction feeds publish.
type wireTransaction struct {
	Chain       string       `json:"chain"`
	Hash        string       `json:"hash"`
	WalletID    string       `json:"wallet_id"`
	BlockNumber int64        `json:"block_number"`
	TimestampMs int64        `json:"timestamp_ms"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Value       string       `json:"value"`
	GasUsed     string       `json:"gas_used"`
	Decoded     *wireDecoded `json:"decoded,omitempty"`
}

type wireDecoded struct {
	Method    string            `json:"method"`
	Selector  string            `json:"selector"`
	Args      map[string]string `json:"args,omitempty"`
	Events    []wireEvent       `json:"events,omitempty"`
	TokenSyms map[string]string `json:"token_symbols,omitempty"`
}

type wireEvent struct {
	Address string            `json:"address"`
	Name    string            `json:"name"`
	Topics  []string          `json:"topics,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Index   int               `json:"index"`
}

// toDomain validates a wire transaction and converts it, assigning the
// deterministic record ID.
func (w *wireTransaction) toDomain(nowMs int64) (*domain.RawTransaction, error) {
	chain := domain.Chain(w.Chain)
	if !chain.IsValid() {
		return nil, fmt.Errorf("invalid chain %q", w.Chain)
	}
	if w.Hash == "" || w.WalletID == "" {
		return nil, fmt.Errorf("transaction missing hash or wallet id")
	}
	value, err := parseWireDecimal(w.Value)
	if err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	gas, err := parseWireDecimal(w.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("parse gas: %w", err)
	}

	tx := &domain.RawTransaction{
		ID:          idhash.ComputeRawTxID(chain, w.Hash, w.WalletID, w.BlockNumber),
		WalletID:    w.WalletID,
		Chain:       chain,
		Hash:        w.Hash,
		BlockNumber: w.BlockNumber,
		Timestamp:   w.TimestampMs,
		From:        w.From,
		To:          w.To,
		Value:       value,
		GasUsed:     gas,
		Status:      domain.TxStatusLoaded,
		CreatedAt:   nowMs,
	}
	if w.Decoded != nil {
		d := &domain.DecodedCall{
			Method:    w.Decoded.Method,
			Selector:  w.Decoded.Selector,
			Args:      w.Decoded.Args,
			TokenSyms: w.Decoded.TokenSyms,
		}
		for _, ev := range w.Decoded.Events {
			d.Events = append(d.Events, domain.EventLog{
				Address: ev.Address,
				Name:    ev.Name,
				Topics:  ev.Topics,
				Params:  ev.Params,
				Index:   ev.Index,
			})
		}
		tx.Decoded = d
	}
	return tx, nil
}

func parseWireDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
