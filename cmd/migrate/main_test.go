package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr      error
	steps      []int
	forced     []int
	version    uint
	dirty      bool
	versionErr error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = append(f.forced, v)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}

func TestRunUp(t *testing.T) {
	for _, upErr := range []error{nil, migrate.ErrNoChange} {
		var out bytes.Buffer
		if err := run(&fakeMigrator{upErr: upErr}, nil, &out); err != nil {
			t.Fatalf("up with %v: %v", upErr, err)
		}
		if !strings.Contains(out.String(), "migrations complete") {
			t.Fatalf("unexpected output %q", out.String())
		}
	}

	if err := run(&fakeMigrator{upErr: errors.New("relation exists")}, []string{"up"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected up failure to be returned")
	}
}

func TestRunDown(t *testing.T) {
	m := &fakeMigrator{}
	var out bytes.Buffer
	if err := run(m, []string{"down", "2"}, &out); err != nil {
		t.Fatalf("down: %v", err)
	}
	if len(m.steps) != 1 || m.steps[0] != -2 {
		t.Fatalf("expected Steps(-2), got %v", m.steps)
	}

	for _, args := range [][]string{{"down"}, {"down", "0"}, {"down", "many"}} {
		if err := run(&fakeMigrator{}, args, &bytes.Buffer{}); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestRunVersionAndForce(t *testing.T) {
	var out bytes.Buffer
	if err := run(&fakeMigrator{version: 2}, []string{"version"}, &out); err != nil {
		t.Fatalf("version: %v", err)
	}
	if out.String() != "version 2 dirty=false\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := run(&fakeMigrator{versionErr: migrate.ErrNilVersion}, []string{"version"}, &out); err != nil {
		t.Fatalf("version on empty db: %v", err)
	}
	if !strings.Contains(out.String(), "no migrations applied") {
		t.Fatalf("unexpected output %q", out.String())
	}

	m := &fakeMigrator{}
	if err := run(m, []string{"force", "1"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("force: %v", err)
	}
	if len(m.forced) != 1 || m.forced[0] != 1 {
		t.Fatalf("expected Force(1), got %v", m.forced)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run(&fakeMigrator{}, []string{"sideways"}, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("expected usage error, got %v", err)
	}
}
