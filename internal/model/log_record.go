package model

import "strings"

// LogRecord is one chain log as archived by run and read back by replay.
// The Tx* fields are only filled for data sources that read transaction metadata.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	TxFrom      string   `json:"tx_from,omitempty"`
	TxTo        string   `json:"tx_to,omitempty"`
	TxInput     string   `json:"tx_input,omitempty"`
	IngestedAt  string   `json:"ingested_at"`
}

// Topic0 returns the lower-cased event signature hash, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return strings.ToLower(lr.Topics[0])
}
