package extensions

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	tritium "github.com/clsnc/TritiumDB"
)

func TestGraphDebugExtension_OnError(t *testing.T) {
	var buf bytes.Buffer
	multiWriter := io.MultiWriter(&buf, os.Stdout)
	handler := NewHumanHandler(multiWriter, slog.LevelError)

	r := tritium.NewReactor(tritium.WithReactorExtension(NewGraphDebugExtension(handler)))

	storage := tritium.NewPredicate("Storage", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		return "storage-value", nil
	})
	storageExpr := tritium.NewExpression(storage)

	userService := tritium.NewPredicate("UserService", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		if _, err := ctx.Spy(storageExpr); err != nil {
			return nil, err
		}
		return nil, errors.New("type assertion failed: expected *User, got *string")
	})
	userServiceExpr := tritium.NewExpression(userService)

	_, err := r.Get(userServiceExpr)
	if err == nil {
		t.Fatal("expected error but got nil")
	}

	output := buf.String()

	if !strings.Contains(output, strings.Repeat("=", 70)) {
		t.Error("expected separator line")
	}
	if !strings.Contains(output, "[GraphDebug] Expression Resolution Error") {
		t.Error("expected header")
	}
	if !strings.Contains(output, "Operation: get") {
		t.Error("expected 'Operation: get'")
	}
	if !strings.Contains(output, "Dependency Graph:") {
		t.Error("expected 'Dependency Graph:' section")
	}
	if !strings.Contains(output, "Error Details:") {
		t.Error("expected 'Error Details:' section")
	}
}

func TestGraphDebugExtension_TracksResolved(t *testing.T) {
	ext := NewGraphDebugExtension(NewSilentHandler())
	r := tritium.NewReactor(tritium.WithReactorExtension(ext))

	storage := tritium.NewPredicate("Storage", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		return "storage-value", nil
	})
	storageExpr := tritium.NewExpression(storage)

	service := tritium.NewPredicate("Service", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		v, err := ctx.Spy(storageExpr)
		if err != nil {
			return nil, err
		}
		return "service-" + v.(string), nil
	})
	serviceExpr := tritium.NewExpression(service)

	if _, err := r.Get(serviceExpr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ext.resolved[storageExpr.String()] {
		t.Error("expected storage to be tracked as resolved")
	}
	if !ext.resolved[serviceExpr.String()] {
		t.Error("expected service to be tracked as resolved")
	}
}

func TestExportGraph(t *testing.T) {
	r := tritium.NewReactor()

	config := tritium.NewExpression(tritium.NewPredicate("Config", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		return "config", nil
	}))
	storage := tritium.NewExpression(tritium.NewPredicate("Storage", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		return "storage", nil
	}))
	service := tritium.NewExpression(tritium.NewPredicate("Service", func(ctx *tritium.EvalContext, args []tritium.Term) (any, error) {
		c, err := ctx.Spy(config)
		if err != nil {
			return nil, err
		}
		s, err := ctx.Spy(storage)
		if err != nil {
			return nil, err
		}
		return c.(string) + "-" + s.(string), nil
	}))

	if _, err := r.Get(service); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph := exportGraph(r.Snapshot())

	configDeps, ok := graph[config.String()]
	if !ok {
		t.Fatal("expected config in exported graph")
	}
	found := false
	for _, dep := range configDeps {
		if dep == service.String() {
			found = true
		}
	}
	if !found {
		t.Error("expected service listed as a dependent of config")
	}
}

func TestSilentHandler(t *testing.T) {
	handler := NewSilentHandler()

	if handler.Enabled(nil, slog.LevelError) {
		t.Error("expected SilentHandler to report disabled for every level")
	}
	if err := handler.Handle(nil, slog.Record{}); err != nil {
		t.Errorf("expected Handle to return nil, got %v", err)
	}
	if handler.WithAttrs(nil) != handler {
		t.Error("expected WithAttrs to return self")
	}
	if handler.WithGroup("g") != handler {
		t.Error("expected WithGroup to return self")
	}
}
