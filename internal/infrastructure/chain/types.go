package chain

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const statusSuccess = "success"

type TransactionBytes struct {
	TxBytes string `json:"txBytes"`
	Gas     []struct {
		ObjectID string `json:"objectId"`
	} `json:"gas"`
}

type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
	Sender     string `json:"sender"`
	Version    string `json:"version"`
	Digest     string `json:"digest"`
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type Effects struct {
	Status            ExecutionStatus `json:"status"`
	TransactionDigest string          `json:"transactionDigest"`
}

// TransactionResponse is the subset of SuiTransactionBlockResponse the
// backend reads.
type TransactionResponse struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects"`
	ObjectChanges []ObjectChange `json:"objectChanges"`
}

func (r TransactionResponse) Succeeded() bool {
	return r.Effects != nil && r.Effects.Status.Status == statusSuccess
}

// Created returns ids of created objects whose type ends with suffix.
func (r TransactionResponse) Created(suffix string) []string {
	var ids []string

	for _, change := range r.ObjectChanges {
		if change.Type == "created" && strings.HasSuffix(change.ObjectType, suffix) {
			ids = append(ids, change.ObjectID)
		}
	}

	return ids
}

type ObjectResponse struct {
	Data  *ObjectData `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Type     string         `json:"type"`
	Content  *ObjectContent `json:"content"`
}

type ObjectContent struct {
	DataType string                         `json:"dataType"`
	Type     string                         `json:"type"`
	Fields   map[string]jsoniter.RawMessage `json:"fields"`
}

// Uint reads a u64 field. Move u64 values are rendered as JSON strings.
func (c ObjectContent) Uint(name string) (uint64, bool) {
	raw, ok := c.Fields[name]
	if !ok {
		return 0, false
	}

	var s string
	if err := jsoniter.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseUint(s, 10, 64)
		return v, err == nil
	}

	var n uint64
	if err := jsoniter.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	return 0, false
}
