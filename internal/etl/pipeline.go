package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"passengerexport/internal/config"
	"passengerexport/internal/dbclient"
	"passengerexport/internal/domain"
	"passengerexport/internal/metrics"
)

// ── State machine ──────────────────────────────────────────
// Idle → ConnectingDocumentStore → ConnectingRelationalStore → Streaming
//      → Serializing → Writing → Done, or Failed on the first error.

// State is a stage of an export run.
type State string

const (
	StateIdle                      State = "idle"
	StateConnectingDocumentStore   State = "connecting_document_store"
	StateConnectingRelationalStore State = "connecting_relational_store"
	StateStreaming                 State = "streaming"
	StateSerializing               State = "serializing"
	StateWriting                   State = "writing"
	StateDone                      State = "done"
	StateFailed                    State = "failed"
)

// StageError is returned by Run. State is the stage that failed; Err carries
// one of the domain error kinds.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.State, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Result summarizes one run.
type Result struct {
	RunID          string        `json:"runId"`
	State          State         `json:"state"`
	FailedAt       State         `json:"failedAt,omitempty"`
	RowsRead       int           `json:"rowsRead"`
	RowsMatched    int           `json:"rowsMatched"`
	LookupsSkipped int           `json:"lookupsSkipped"`
	DuplicateRows  int           `json:"duplicateRows"`
	BytesWritten   int           `json:"bytesWritten"`
	Checksum       uint64        `json:"checksum"` // xxh3 of the written file
	Duration       time.Duration `json:"duration"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs the export. The Open* hooks and Dest are replaceable so the
// pipeline can run against fakes.
type Engine struct {
	OpenReports func(ctx context.Context, uri config.DocumentURI) (dbclient.ReportSource, error)
	OpenUsers   func(ctx context.Context, uri string) (dbclient.UserLookup, error)
	Dest        Destination
	Log         *logrus.Logger
	Metrics     *metrics.Recorder

	state State
}

// NewEngine returns an engine wired to MongoDB, the SQL user table and the
// local filesystem.
func NewEngine(log *logrus.Logger, rec *metrics.Recorder) *Engine {
	return &Engine{
		OpenReports: func(ctx context.Context, uri config.DocumentURI) (dbclient.ReportSource, error) {
			m, err := dbclient.ConnectMongo(ctx, uri, logrus.NewEntry(log))
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		OpenUsers: func(ctx context.Context, uri string) (dbclient.UserLookup, error) {
			u, err := dbclient.ConnectUsers(ctx, uri, logrus.NewEntry(log))
			if err != nil {
				return nil, err
			}
			return u, nil
		},
		Dest:    FileDestination{},
		Log:     log,
		Metrics: rec,
		state:   StateIdle,
	}
}

// State returns the stage the engine is in.
func (e *Engine) State() State {
	if e.state == "" {
		return StateIdle
	}
	return e.state
}

// Run executes one export end-to-end. It stops at the first error; both
// connections are closed on every path. The output file is written only
// once every row has been gathered.
func (e *Engine) Run(ctx context.Context, opts config.Options) (*Result, error) {
	if e.Log == nil {
		e.Log = logrus.StandardLogger()
	}
	if e.Metrics == nil {
		e.Metrics = metrics.NewRecorder(nil)
	}
	if e.Dest == nil {
		e.Dest = FileDestination{}
	}

	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := e.Log.WithFields(logrus.Fields{"component": "etl", "run": result.RunID})
	e.state = StateIdle

	finish := func(err error) (*Result, error) {
		result.Duration = time.Since(start)
		if err != nil {
			result.FailedAt = e.state
			serr := &StageError{State: e.state, Err: err}
			e.state = StateFailed
			result.State = StateFailed
			log.WithError(err).WithField("stage", serr.State).Error("export failed")
			return result, serr
		}
		e.state = StateDone
		result.State = StateDone
		log.WithFields(logrus.Fields{
			"rows":     result.RowsRead,
			"matched":  result.RowsMatched,
			"bytes":    result.BytesWritten,
			"checksum": fmt.Sprintf("%016x", result.Checksum),
			"duration": result.Duration,
		}).Info("export done")
		return result, nil
	}

	docURI, err := config.ParseDocumentURI(opts.MongoURI)
	if err != nil {
		return finish(err)
	}

	// 1. Document store.
	e.enter(log, StateConnectingDocumentStore)
	var reports dbclient.ReportSource
	err = e.step(StateConnectingDocumentStore, func() error {
		reports, err = e.OpenReports(ctx, docURI)
		return kind(domain.ErrConnection, err)
	})
	if err != nil {
		return finish(err)
	}
	defer func() {
		if err := reports.Close(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("close document store")
		}
	}()

	// 2. Relational store.
	e.enter(log, StateConnectingRelationalStore)
	var users dbclient.UserLookup
	err = e.step(StateConnectingRelationalStore, func() error {
		users, err = e.OpenUsers(ctx, opts.PgURI)
		return kind(domain.ErrConnection, err)
	})
	if err != nil {
		return finish(err)
	}
	defer func() {
		if err := users.Close(); err != nil {
			log.WithError(err).Warn("close relational store")
		}
	}()

	// 3. Stream reports through normalize → lookup → merge.
	e.enter(log, StateStreaming)
	var table *Table
	err = e.step(StateStreaming, func() error {
		table, err = e.stream(ctx, log, reports, users, result)
		return err
	})
	e.Metrics.Records(metrics.KindRead, result.RowsRead)
	e.Metrics.Records(metrics.KindMatched, result.RowsMatched)
	e.Metrics.Records(metrics.KindUnmatched, result.RowsRead-result.RowsMatched-result.LookupsSkipped)
	e.Metrics.Records(metrics.KindNoUserID, result.LookupsSkipped)
	e.Metrics.Records(metrics.KindDuplicates, result.DuplicateRows)
	if err != nil {
		return finish(err)
	}

	// 4. Serialize.
	e.enter(log, StateSerializing)
	var content []byte
	err = e.step(StateSerializing, func() error {
		content = table.Bytes()
		return nil
	})
	if err != nil {
		return finish(err)
	}

	// 5. Write.
	e.enter(log, StateWriting)
	err = e.step(StateWriting, func() error {
		return kind(domain.ErrWrite, e.Dest.Write(opts.CSVPath, content))
	})
	if err != nil {
		return finish(err)
	}
	result.BytesWritten = len(content)
	result.Checksum = xxh3.Hash(content)

	return finish(nil)
}

// stream advances the cursor one document at a time. Each document's lookup
// completes before the next advance.
func (e *Engine) stream(ctx context.Context, log *logrus.Entry, reports dbclient.ReportSource, users dbclient.UserLookup, result *Result) (*Table, error) {
	cursor, err := reports.StreamAll(ctx)
	if err != nil {
		return nil, kind(domain.ErrCursor, err)
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	table := NewTable()
	for cursor.Next(ctx) {
		var raw bson.Raw
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", domain.ErrCursor, result.RowsRead+1, err)
		}
		report, err := DecodeReport(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", domain.ErrCursor, result.RowsRead+1, err)
		}
		result.RowsRead++

		doc := Normalize(report)
		var rel *domain.Passenger
		if doc.UserID.Valid {
			var n int
			rel, n, err = users.LookupUser(ctx, doc.UserID.String)
			if err != nil {
				return nil, kind(domain.ErrQuery, err)
			}
			if rel != nil {
				result.RowsMatched++
			}
			if n > 1 {
				result.DuplicateRows += n - 1
			}
		} else {
			result.LookupsSkipped++
			log.WithField("document", result.RowsRead).Debug("report without uid, lookup skipped")
		}

		table.Append(domain.Merge(doc, rel))
	}
	if err := cursor.Err(); err != nil {
		return nil, kind(domain.ErrCursor, err)
	}
	return table, nil
}

func (e *Engine) enter(log *logrus.Entry, s State) {
	log.WithFields(logrus.Fields{"from": e.State(), "to": s}).Debug("transition")
	e.state = s
}

// step times fn and records it under the stage name.
func (e *Engine) step(s State, fn func() error) error {
	start := time.Now()
	err := fn()
	e.Metrics.Step(string(s), err, time.Since(start))
	return err
}

var kinds = []error{
	domain.ErrConfig, domain.ErrConnection, domain.ErrQuery, domain.ErrCursor, domain.ErrWrite,
}

// kind tags err with k unless it already carries one of the error kinds.
// A nil err stays nil.
func kind(k, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range kinds {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", k, err)
}
