package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	tritium "github.com/clsnc/TritiumDB"
)

// GraphDebugExtension logs a dependency-graph visualization whenever a
// Reactor operation fails.
//
// Usage:
//
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	ext := extensions.NewGraphDebugExtension(extensions.NewSilentHandler())
type GraphDebugExtension struct {
	tritium.BaseExtension

	resolved map[string]bool
	failed   map[string]error
	logger   *slog.Logger
}

// NewGraphDebugExtension creates a graph debug extension logging through
// logHandler (use HumanHandler for formatted output, or any slog.Handler).
func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: tritium.NewBaseExtension("graph-debug"),
		resolved:      make(map[string]bool),
		failed:        make(map[string]error),
		logger:        slog.New(logHandler),
	}
}

// Wrap tracks which expressions resolved cleanly and which failed.
func (e *GraphDebugExtension) Wrap(ctx context.Context, next func() (any, error), op *tritium.Operation) (any, error) {
	result, err := next()

	if op.Kind == tritium.OpGet {
		key := op.Expr.String()
		if err == nil {
			e.resolved[key] = true
			delete(e.failed, key)

			// Expressions consulted through Spy never pass through Wrap
			// themselves; mark every cached contributor as resolved too.
			store := op.Reactor.Snapshot()
			stack := store.Contributors(op.Expr).Slice()
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if cell, ok := store.Lookup(c); ok && cell.IsValue() {
					e.resolved[c.String()] = true
					delete(e.failed, c.String())
				}
				stack = append(stack, store.Contributors(c).Slice()...)
			}
		} else {
			e.failed[key] = err
		}
	}

	return result, err
}

// OnError logs the dependency graph rooted near the failing expression.
func (e *GraphDebugExtension) OnError(err error, op *tritium.Operation, r *tritium.Reactor) {
	graphOutput := e.formatDependencyGraph(r, op.Expr, err)

	e.logger.Error("Expression Resolution Error",
		"expr", op.Expr.String(),
		"error", err.Error(),
		"operation", string(op.Kind),
		"dependency_graph", graphOutput,
	)
}

// exportGraph walks the Store's cached expressions and returns, for each,
// the set of expressions that currently depend on it (spec §4.2's
// dependents index, the same "who consumes this" relation the teacher's
// Scope.downstream tracked for reactive executors).
func exportGraph(s *tritium.Store) map[string][]string {
	graph := make(map[string][]string)
	s.ForEachCached(func(e tritium.Expression, _ tritium.ResultCell) {
		key := e.String()
		if _, ok := graph[key]; !ok {
			graph[key] = nil
		}
		for _, dep := range s.Dependents(e).Slice() {
			graph[key] = append(graph[key], dep.String())
		}
	})
	return graph
}

// tryFormatHorizontalTree renders the dependency graph as a horizontal tree
// using treedrawer, the same library and approach as the teacher's
// GraphDebugExtension, just walking string node identities instead of
// executor pointers.
func (e *GraphDebugExtension) tryFormatHorizontalTree(graph map[string][]string, failedKey string) string {
	parents := make(map[string][]string)
	allNodes := make(map[string]bool)

	for parent, children := range graph {
		allNodes[parent] = true
		for _, child := range children {
			allNodes[child] = true
			parents[child] = append(parents[child], parent)
		}
	}

	var roots []string
	for node := range allNodes {
		if len(parents[node]) == 0 {
			roots = append(roots, node)
		}
	}
	sort.Strings(roots)

	if len(roots) == 0 {
		return ""
	}

	var rootNode *tree.Tree
	if len(roots) == 1 {
		rootNode = e.buildTree(roots[0], graph, failedKey, make(map[string]bool))
	} else {
		rootNode = tree.NewTree(tree.NodeString("Expressions"))
		for _, root := range roots {
			childTree := e.buildTree(root, graph, failedKey, make(map[string]bool))
			if childTree != nil {
				e.addTreeAsChild(rootNode, childTree)
			}
		}
	}

	if rootNode == nil {
		return ""
	}
	return rootNode.String()
}

func (e *GraphDebugExtension) buildTree(key string, graph map[string][]string, failedKey string, visited map[string]bool) *tree.Tree {
	if visited[key] {
		return nil
	}
	visited[key] = true

	label := key
	if key == failedKey {
		label += " FAILED"
	} else if e.resolved[key] {
		label += " ok"
	}

	node := tree.NewTree(tree.NodeString(label))

	children := append([]string(nil), graph[key]...)
	sort.Strings(children)
	for _, child := range children {
		childTree := e.buildTree(child, graph, failedKey, visited)
		if childTree != nil {
			e.addTreeAsChild(node, childTree)
		}
	}

	return node
}

func (e *GraphDebugExtension) addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		e.addTreeAsChild(newChild, grandchild)
	}
}

func (e *GraphDebugExtension) formatDependencyGraph(r *tritium.Reactor, failed tritium.Expression, failedErr error) string {
	var sb strings.Builder
	graph := exportGraph(r.Snapshot())
	failedKey := failed.String()

	if len(graph) == 0 {
		sb.WriteString("\n(empty - nothing cached yet)")
		return sb.String()
	}

	if horizontal := e.tryFormatHorizontalTree(graph, failedKey); horizontal != "" {
		sb.WriteString("\n")
		sb.WriteString(horizontal)
		sb.WriteString("\n")
	}

	sb.WriteString("\nDetailed View:\n")

	keys := make([]string, 0, len(graph))
	for k := range graph {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		children := append([]string(nil), graph[key]...)
		sort.Strings(children)

		status := ""
		if e.resolved[key] {
			status = " ok"
		} else if _, bad := e.failed[key]; bad {
			status = " failed"
		}

		if len(children) == 0 {
			sb.WriteString(fmt.Sprintf("  %s%s (no dependents)\n", key, status))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s%s\n", key, status))

		for i, child := range children {
			label := child
			switch {
			case child == failedKey:
				label += " FAILED"
			case e.resolved[child]:
				label += " ok"
			default:
				if childErr, bad := e.failed[child]; bad {
					label = fmt.Sprintf("%s failed (%v)", label, childErr)
				} else {
					label += " (pending)"
				}
			}
			if i == len(children)-1 {
				sb.WriteString(fmt.Sprintf("    └─> %s\n", label))
			} else {
				sb.WriteString(fmt.Sprintf("    ├─> %s\n", label))
			}
		}
	}

	if failedErr != nil {
		sb.WriteString("\nError Details:\n")
		sb.WriteString(fmt.Sprintf("  Expression: %s\n", failedKey))
		sb.WriteString(fmt.Sprintf("  Error: %v\n", failedErr))
	}

	return sb.String()
}

// SilentHandler is a slog.Handler that discards all log output. Useful for
// tests that register GraphDebugExtension but don't want console noise.
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler.
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool { return false }
func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error { return nil }
func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler             { return h }
func (h *SilentHandler) WithGroup(name string) slog.Handler                  { return h }

// HumanHandler is a slog.Handler that formats logs for human readability,
// giving the dependency-graph attribute its own multi-line block instead of
// the single-line rendering a default slog.TextHandler would produce.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a human-readable log handler.
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: writer, level: level}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Expression Resolution Error" {
		return h.handleResolutionError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleResolutionError(record slog.Record) error {
	var expr, errorMsg, operation, dependencyGraph string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "expr":
			expr = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "dependency_graph":
			dependencyGraph = a.Value.String()
		}
		return true
	})

	writes := []func() error{
		func() error { _, err := fmt.Fprintln(h.writer); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer, "[GraphDebug] Expression Resolution Error"); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nFailed Expression: %s\n", expr); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Error: %s\n", errorMsg); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Operation: %s\n", operation); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nDependency Graph:%s", dependencyGraph); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer); return err },
	}

	for _, write := range writes {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *HumanHandler) WithGroup(name string) slog.Handler       { return h }
