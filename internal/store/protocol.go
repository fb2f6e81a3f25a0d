package store

// Simple JSON protocol for the store daemon over a Unix domain socket.
// Requests and responses alternate on one connection using json.Encoder/Decoder.

const (
	OpGet    = "get"
	OpPut    = "put"
	OpDelete = "delete"
	OpScan   = "scan"
)

type Request struct {
	Op         string `json:"op"`
	Key        string `json:"key"` // prefix for scan
	Value      []byte `json:"value,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	Value   []byte   `json:"value,omitempty"`
	Records []Record `json:"records,omitempty"`
	Error   string   `json:"error,omitempty"`
}
