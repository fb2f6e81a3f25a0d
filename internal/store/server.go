package store

import (
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Serve accepts connections on l and answers protocol requests against kv
// until l is closed.
func Serve(l net.Listener, kv KV, log zerolog.Logger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("Accept failed")
			continue
		}
		go handleConn(conn, kv, log)
	}
}

func handleConn(conn net.Conn, kv KV, log zerolog.Logger) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp := handle(kv, req)
		if !resp.OK && resp.Error != ErrNotFound.Error() && resp.Error != ErrExpired.Error() {
			log.Error().Str("op", req.Op).Str("key", req.Key).Str("error", resp.Error).Msg("Request failed")
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func handle(kv KV, req Request) Response {
	switch req.Op {
	case OpGet:
		v, err := kv.Get(req.Key)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Value: v}
	case OpPut:
		if err := kv.Put(req.Key, req.Value, time.Duration(req.TTLSeconds)*time.Second); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}
	case OpDelete:
		if err := kv.Delete(req.Key); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}
	case OpScan:
		recs, err := kv.Scan(req.Key)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Records: recs}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}

func errResponse(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
