// Package audit records an append-only change trail for terminology records.
//
// Recording is best-effort: a failed write is logged and counted but never
// surfaces to the caller, and never undoes the mutation being audited.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hacknrollers/FHIR-fly/internal/platform/middleware"
)

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

func (o Operation) Valid() bool {
	switch o {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Entry is one row of the audit trail.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	TableName string          `json:"table_name"`
	Operation Operation       `json:"operation"`
	RecordID  uuid.UUID       `json:"record_id"`
	UserID    *string         `json:"user_id,omitempty"`
	ChangedAt time.Time       `json:"changed_at"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

// Sink persists audit entries.
type Sink interface {
	Append(ctx context.Context, e *Entry) error
}

// Result reports what happened to a Record call. Callers discard it; it exists
// so the best-effort contract is visible at the call site.
type Result struct {
	Recorded bool
	Err      error
}

const DefaultTimeout = 2 * time.Second

// Policy names how a Recorder treats failed writes.
type Policy string

// BestEffort logs and counts failed writes without reporting them upstream.
const BestEffort Policy = "best-effort"

// Recorder writes entries to a Sink under the BestEffort policy.
type Recorder struct {
	sink     Sink
	logger   zerolog.Logger
	timeout  time.Duration
	failures prometheus.Counter
}

// NewRecorder builds a Recorder. reg may be nil, in which case the failure
// counter is kept but not exported.
func NewRecorder(sink Sink, logger zerolog.Logger, timeout time.Duration, reg prometheus.Registerer) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fhirfly",
		Name:      "audit_write_failures_total",
		Help:      "Audit entries that could not be persisted.",
	})
	if reg != nil {
		reg.MustRegister(failures)
	}
	return &Recorder{
		sink:     sink,
		logger:   logger.With().Str("component", "audit").Logger(),
		timeout:  timeout,
		failures: failures,
	}
}

// Record appends e to the trail. The write runs on a context detached from
// request cancellation and bounded by the recorder timeout. A nil Recorder is
// a no-op.
func (r *Recorder) Record(ctx context.Context, e Entry) Result {
	if r == nil || r.sink == nil {
		return Result{}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now().UTC()
	}
	if e.UserID == nil {
		if uid := middleware.ActorFromContext(ctx); uid != "" {
			e.UserID = &uid
		}
	}
	if e.Meta == nil {
		if rid := middleware.RequestIDFromContext(ctx); rid != "" {
			e.Meta = Snapshot(map[string]string{"request_id": rid})
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sink.Append(wctx, &e); err != nil {
		r.failures.Inc()
		r.logger.Warn().Err(err).
			Str("table_name", e.TableName).
			Str("operation", string(e.Operation)).
			Str("record_id", e.RecordID.String()).
			Str("policy", string(r.Policy())).
			Msg("audit write failed")
		return Result{Err: err}
	}
	return Result{Recorded: true}
}

func (r *Recorder) Policy() Policy { return BestEffort }

func Insert(table string, id uuid.UUID, newData interface{}) Entry {
	return Entry{TableName: table, Operation: OpInsert, RecordID: id, NewData: Snapshot(newData)}
}

func Update(table string, id uuid.UUID, oldData, newData interface{}) Entry {
	return Entry{TableName: table, Operation: OpUpdate, RecordID: id, OldData: Snapshot(oldData), NewData: Snapshot(newData)}
}

func Delete(table string, id uuid.UUID, oldData interface{}) Entry {
	return Entry{TableName: table, Operation: OpDelete, RecordID: id, OldData: Snapshot(oldData)}
}

// Snapshot marshals v for storage in an entry. Values that cannot be encoded
// are dropped rather than failing the audit write.
func Snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
