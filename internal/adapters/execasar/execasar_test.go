package execasar

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/mcdonaldj/asarkit/internal/mocks"
	"github.com/mcdonaldj/asarkit/internal/ports"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a := New(mocks.NewMockRunner())
		if !reflect.DeepEqual(a.command, DefaultCommand) {
			t.Errorf("command = %v, expected %v", a.command, DefaultCommand)
		}
		if a.extractTimeout != DefaultExtractTimeout {
			t.Errorf("extractTimeout = %s, expected %s", a.extractTimeout, DefaultExtractTimeout)
		}
		if a.packTimeout != DefaultPackTimeout {
			t.Errorf("packTimeout = %s, expected %s", a.packTimeout, DefaultPackTimeout)
		}
	})

	t.Run("options", func(t *testing.T) {
		a := New(mocks.NewMockRunner(),
			WithCommand([]string{"asar"}),
			WithExtractTimeout(10*time.Second),
			WithPackTimeout(20*time.Second),
		)
		if !reflect.DeepEqual(a.command, []string{"asar"}) {
			t.Errorf("command = %v, expected [asar]", a.command)
		}
		if a.extractTimeout != 10*time.Second || a.packTimeout != 20*time.Second {
			t.Errorf("timeouts = %s/%s, expected 10s/20s", a.extractTimeout, a.packTimeout)
		}
	})

	t.Run("ignores empty and non-positive values", func(t *testing.T) {
		a := New(mocks.NewMockRunner(),
			WithCommand(nil),
			WithExtractTimeout(0),
			WithPackTimeout(-time.Second),
		)
		if !reflect.DeepEqual(a.command, DefaultCommand) {
			t.Errorf("command = %v, expected default", a.command)
		}
		if a.extractTimeout != DefaultExtractTimeout || a.packTimeout != DefaultPackTimeout {
			t.Error("non-positive timeouts should keep the defaults")
		}
	})
}

func TestExtract(t *testing.T) {
	runner := mocks.NewMockRunner()
	a := New(runner, WithCommand([]string{"asar"}), WithExtractTimeout(5*time.Second))

	res := a.Extract(context.Background(), "/apps/Foo/resources/app.asar", "/work/Foo")
	if !res.OK() {
		t.Fatalf("Extract result = %+v, expected success", res)
	}

	call, ok := runner.LastCall()
	if !ok {
		t.Fatal("runner was not called")
	}
	expected := []string{"asar", "extract", "/apps/Foo/resources/app.asar", "/work/Foo"}
	if !reflect.DeepEqual(call.Argv, expected) {
		t.Errorf("argv = %v, expected %v", call.Argv, expected)
	}
	if call.Opts.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, expected 5s", call.Opts.Timeout)
	}
}

func TestPack(t *testing.T) {
	runner := mocks.NewMockRunner()
	a := New(runner, WithPackTimeout(7*time.Second))

	a.Pack(context.Background(), "/work/Foo", "/work/Foo.asar.new")

	call, _ := runner.LastCall()
	expected := []string{"npx", "--yes", "@electron/asar", "pack", "/work/Foo", "/work/Foo.asar.new"}
	if !reflect.DeepEqual(call.Argv, expected) {
		t.Errorf("argv = %v, expected %v", call.Argv, expected)
	}
	if call.Opts.Timeout != 7*time.Second {
		t.Errorf("timeout = %s, expected 7s", call.Opts.Timeout)
	}
}

func TestResultsPassThrough(t *testing.T) {
	runner := mocks.NewMockRunner()
	runner.Results["npx"] = ports.CommandResult{Kind: ports.Completed, ExitCode: 1, Stderr: "invalid directory"}
	a := New(runner)

	res := a.Pack(context.Background(), "/missing", "/out.asar")
	if res.OK() {
		t.Error("non-zero exit should not be OK")
	}
	if res.Diagnostic() != "invalid directory" {
		t.Errorf("Diagnostic() = %q, expected stderr", res.Diagnostic())
	}
}

func TestWithCommandCopiesArgv(t *testing.T) {
	prefix := []string{"asar"}
	runner := mocks.NewMockRunner()
	a := New(runner, WithCommand(prefix))
	prefix[0] = "mutated"

	a.Extract(context.Background(), "/app.asar", "/out")
	call, _ := runner.LastCall()
	if call.Argv[0] != "asar" {
		t.Errorf("argv[0] = %q, expected asar", call.Argv[0])
	}
}

func TestImplementsInterface(t *testing.T) {
	var _ ports.Archiver = (*AsarArchiver)(nil)
}
