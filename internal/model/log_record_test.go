package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogRecordOmitsMissingTransaction(t *testing.T) {
	rec := LogRecord{
		BlockNumber: 36000000,
		TxHash:      "0xdef456",
		Topics:      []string{"0xAAA", "0xbbb"},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(b), "tx_from") || strings.Contains(string(b), "tx_input") {
		t.Fatalf("empty transaction fields encoded: %s", b)
	}

	rec.TxFrom, rec.TxInput = "0x2222222222222222222222222222222222222222", "0xfb0f3ee1"
	b, err = json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.TxFrom != rec.TxFrom || decoded.TxInput != rec.TxInput {
		t.Fatalf("transaction fields lost: %+v", decoded)
	}
}

func TestTopic0(t *testing.T) {
	if got := (LogRecord{Topics: []string{"0xABCD", "0x01"}}).Topic0(); got != "0xabcd" {
		t.Fatalf("unexpected topic0 %q", got)
	}
	if got := (LogRecord{}).Topic0(); got != "" {
		t.Fatalf("anonymous log topic0 %q", got)
	}
}

func TestNewDecodeError(t *testing.T) {
	rec := LogRecord{BlockNumber: 7, TxHash: "0x01", LogIndex: 3, Topics: []string{"0xFF"}}
	e := NewDecodeError(12, StageDecode, rec, errors.New("bad data"))
	if e.Line != 12 || e.Stage != StageDecode || e.Topic0 != "0xff" || e.LogIndex != 3 || e.Error != "bad data" {
		t.Fatalf("unexpected decode error %+v", e)
	}
}
