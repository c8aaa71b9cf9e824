package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"passengerexport/internal/config"
	"passengerexport/internal/domain"
	"passengerexport/internal/etl"
)

type recordingRunner struct {
	calls int
	opts  config.Options
	err   error
}

func (r *recordingRunner) run(_ context.Context, opts config.Options, _ *logrus.Logger) (*etl.Result, error) {
	r.calls++
	r.opts = opts
	return &etl.Result{}, r.err
}

func execute(t *testing.T, r *recordingRunner, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvMongoURI, "")
	t.Setenv(config.EnvPgURI, "")
	t.Setenv(config.EnvCSVPath, "")
	t.Setenv(config.EnvPushgateway, "")

	var out bytes.Buffer
	cmd := NewRootCommand(r.run)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_MissingOptionsShowsUsage(t *testing.T) {
	cases := [][]string{
		{},
		{"-m", "mongodb://localhost/db/coll", "-c", "/tmp/out.csv"},
		{"-p", "tcp://u@localhost/db", "-c", "/tmp/out.csv"},
		{"-p", "tcp://u@localhost/db", "-m", "mongodb://localhost/db/coll"},
	}
	for _, args := range cases {
		r := &recordingRunner{}
		out, err := execute(t, r, args...)
		if err != nil {
			t.Errorf("args %v: unexpected error %v", args, err)
		}
		if r.calls != 0 {
			t.Errorf("args %v: export must not run", args)
		}
		if !strings.HasPrefix(out, "Usage:") {
			t.Errorf("args %v: output = %q, want usage", args, out)
		}
	}
}

func TestRoot_HelpFlag(t *testing.T) {
	for _, flag := range []string{"-h", "--help"} {
		r := &recordingRunner{}
		out, err := execute(t, r, flag,
			"-p", "tcp://u@localhost/db", "-m", "mongodb://localhost/db/coll", "-c", "/tmp/out.csv")
		if err != nil {
			t.Fatalf("%s: %v", flag, err)
		}
		if r.calls != 0 {
			t.Errorf("%s: export must not run", flag)
		}
		if !strings.Contains(out, "--mongoUri mongodb://<ip>:<port>/<db>/<collection>") {
			t.Errorf("%s: output = %q", flag, out)
		}
	}
}

func TestRoot_RunsWithFlags(t *testing.T) {
	r := &recordingRunner{}
	_, err := execute(t, r,
		"--pgUri", "tcp://djump-payment@localhost/djump_payment",
		"--mongoUri", "mongodb://localhost:27017/reports/ReportCollection",
		"--csvPath", "/tmp/users.csv",
		"--log-level", "debug",
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
	want := config.Options{
		PgURI:     "tcp://djump-payment@localhost/djump_payment",
		MongoURI:  "mongodb://localhost:27017/reports/ReportCollection",
		CSVPath:   "/tmp/users.csv",
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if r.opts != want {
		t.Errorf("opts = %+v, want %+v", r.opts, want)
	}
}

func TestRoot_EnvFillsMissingFlags(t *testing.T) {
	r := &recordingRunner{}
	var out bytes.Buffer
	cmd := NewRootCommand(r.run)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--env-file", "", "-c", "/tmp/flag.csv"})

	t.Setenv(config.EnvMongoURI, "mongodb://env/db/coll")
	t.Setenv(config.EnvPgURI, "postgres://env/db")
	t.Setenv(config.EnvCSVPath, "/tmp/env.csv")

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
	if r.opts.CSVPath != "/tmp/flag.csv" || r.opts.PgURI != "postgres://env/db" {
		t.Errorf("opts = %+v", r.opts)
	}
}

func TestRoot_ExportErrorPropagates(t *testing.T) {
	r := &recordingRunner{err: &etl.StageError{State: etl.StateStreaming, Err: domain.ErrQuery}}
	_, err := execute(t, r,
		"-p", "tcp://u@localhost/db", "-m", "mongodb://localhost/db/coll", "-c", "/tmp/out.csv")
	if !errors.Is(err, domain.ErrQuery) {
		t.Errorf("error = %v, want ErrQuery", err)
	}
}

func TestRoot_BadLogLevel(t *testing.T) {
	r := &recordingRunner{}
	_, err := execute(t, r,
		"-p", "tcp://u@localhost/db", "-m", "mongodb://localhost/db/coll", "-c", "/tmp/out.csv",
		"--log-level", "chatty")
	if err == nil {
		t.Error("expected error for unknown log level")
	}
	if r.calls != 0 {
		t.Error("export must not run with a bad log level")
	}
}

func TestExport_MalformedDocumentURI(t *testing.T) {
	t.Setenv(config.EnvMongoURI, "mongodb://localhost")
	t.Setenv(config.EnvPgURI, "tcp://u@localhost/db")
	t.Setenv(config.EnvCSVPath, "/tmp/out.csv")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(Export)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--env-file", ""})

	// The document URI has no collection, so the run fails before any
	// connection attempt.
	err := cmd.Execute()
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}
