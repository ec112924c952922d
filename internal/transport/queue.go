package transport

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/tidwall/wal"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/result"
	"mec/pkg/logging"
)

// queueEntry is the on-disk envelope of one queued payload.
type queueEntry struct {
	Kind       string `json:"kind"`
	BlobType   string `json:"blobType,omitempty"`
	Data       []byte `json:"data,omitempty"`
	ResultKind string `json:"resultKind,omitempty"`
	Value      string `json:"value,omitempty"`
}

func encodeEntry(p dataflow.Payload) ([]byte, error) {
	var e queueEntry
	switch p.Kind() {
	case dataflow.PayloadBlob:
		b, _ := p.Blob()
		e = queueEntry{Kind: "blob", BlobType: b.Type, Data: b.Data}
	case dataflow.PayloadResult:
		r, _ := p.Result()
		switch r.Kind() {
		case result.KindBool, result.KindInt, result.KindString:
		case result.KindBlob:
			b, _ := r.AsBlob()
			e = queueEntry{Kind: "blob", BlobType: b.Type, Data: b.Data}
			return json.Marshal(e)
		default:
			return nil, fmt.Errorf("cannot queue %s result", r.Kind())
		}
		e = queueEntry{Kind: "result", ResultKind: r.Kind().String(), Value: r.Text()}
	default:
		return nil, fmt.Errorf("cannot queue %s payload", p.Kind())
	}
	return json.Marshal(e)
}

func decodeEntry(data []byte) (dataflow.Payload, error) {
	var e queueEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return dataflow.Payload{}, fmt.Errorf("failed to decode queue entry: %w", err)
	}
	switch e.Kind {
	case "blob":
		return dataflow.BlobPayload(blob.New(e.BlobType, e.Data)), nil
	case "result":
		switch e.ResultKind {
		case result.KindBool.String():
			v, err := strconv.ParseBool(e.Value)
			if err != nil {
				return dataflow.Payload{}, fmt.Errorf("invalid bool in queue entry: %w", err)
			}
			return dataflow.ResultPayload(result.Bool(v)), nil
		case result.KindInt.String():
			v, err := strconv.ParseInt(e.Value, 10, 64)
			if err != nil {
				return dataflow.Payload{}, fmt.Errorf("invalid int in queue entry: %w", err)
			}
			return dataflow.ResultPayload(result.Int(v)), nil
		default:
			return dataflow.ResultPayload(result.String(e.Value)), nil
		}
	default:
		return dataflow.Payload{}, fmt.Errorf("unknown queue entry kind %q", e.Kind)
	}
}

// queueLog is a write-ahead log shared by every producer and consumer
// opened on the same directory. It is closed when the last user closes.
type queueLog struct {
	dir  string
	mu   sync.Mutex
	log  *wal.Log
	refs int
	// next is the index the next read returns.
	next    uint64
	release func(*queueLog)
}

func openQueueLog(dir string) (*queueLog, error) {
	log, err := wal.Open(dir, &wal.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open queue %s: %w", dir, err)
	}
	first, err := log.FirstIndex()
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed obtaining first queue index: %w", err)
	}
	if first == 0 {
		first = 1
	}
	return &queueLog{dir: dir, log: log, next: first}, nil
}

func (q *queueLog) append(p dataflow.Payload) bool {
	data, err := encodeEntry(p)
	if err != nil {
		logging.Warn("Transport", "Queue %s: %v", q.dir, err)
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	last, err := q.log.LastIndex()
	if err != nil {
		logging.Error("Transport", err, "Failed to read last index of queue %s", q.dir)
		return false
	}
	// The log counts from 1.
	if err := q.log.Write(last+1, data); err != nil {
		logging.Error("Transport", err, "Failed to append to queue %s", q.dir)
		return false
	}
	// pop leaves the consumed last entry in place; drop it now that a newer
	// one exists.
	if first, err := q.log.FirstIndex(); err == nil && first < q.next {
		if err := q.log.TruncateFront(q.next); err != nil {
			logging.Warn("Transport", "Failed to compact queue %s: %v", q.dir, err)
		}
	}
	return true
}

func (q *queueLog) hasData() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	last, err := q.log.LastIndex()
	return err == nil && q.next <= last
}

func (q *queueLog) pop() (dataflow.Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	last, err := q.log.LastIndex()
	if err != nil || q.next > last {
		return dataflow.Payload{}, false
	}
	data, err := q.log.Read(q.next)
	if err != nil {
		logging.Error("Transport", err, "Failed to read index %d of queue %s", q.next, q.dir)
		return dataflow.Payload{}, false
	}
	q.next++
	// The log cannot drop its last entry, so only compact behind the cursor.
	if q.next <= last {
		if err := q.log.TruncateFront(q.next); err != nil {
			logging.Warn("Transport", "Failed to compact queue %s: %v", q.dir, err)
		}
	}

	p, err := decodeEntry(data)
	if err != nil {
		logging.Error("Transport", err, "Queue %s is corrupt at index %d", q.dir, q.next-1)
		return dataflow.Payload{}, false
	}
	return p, true
}

func (q *queueLog) acquire() {
	q.mu.Lock()
	q.refs++
	q.mu.Unlock()
}

func (q *queueLog) close() error {
	q.mu.Lock()
	q.refs--
	last := q.refs <= 0
	q.mu.Unlock()
	if !last {
		return nil
	}
	if q.release != nil {
		q.release(q)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	lastIdx, err := q.log.LastIndex()
	drained := err == nil && q.next > lastIdx
	if err := q.log.Close(); err != nil {
		return fmt.Errorf("failed to close queue %s: %w", q.dir, err)
	}
	// A drained log still holds its final entry; drop the directory so a
	// reopen does not deliver it twice.
	if drained {
		if err := os.RemoveAll(q.dir); err != nil {
			return fmt.Errorf("failed to remove drained queue %s: %w", q.dir, err)
		}
	}
	return nil
}

// queueEnd is a producer or consumer view of a queue.
type queueEnd struct {
	q      *queueLog
	closed bool
}

func (e *queueEnd) CanAcceptData() bool { return !e.closed }

func (e *queueEnd) Write(p dataflow.Payload) bool {
	if e.closed {
		return false
	}
	return e.q.append(p)
}

func (e *queueEnd) HasData() bool { return !e.closed && e.q.hasData() }

func (e *queueEnd) Read() (dataflow.Payload, bool) {
	if e.closed {
		return dataflow.Payload{}, false
	}
	return e.q.pop()
}

func (e *queueEnd) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.q.close()
}
