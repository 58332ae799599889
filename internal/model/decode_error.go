package model

// Replay failure stages.
const (
	StageParse  = "parse"
	StageDecode = "decode"
)

// DecodeError is one input line replay could not apply.
type DecodeError struct {
	Line        int    `json:"line"`
	Stage       string `json:"stage"`
	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address,omitempty"`
	Topic0      string `json:"topic0,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError describes record, read from line, failing at stage.
func NewDecodeError(line int, stage string, record LogRecord, err error) DecodeError {
	return DecodeError{
		Line:        line,
		Stage:       stage,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
}
