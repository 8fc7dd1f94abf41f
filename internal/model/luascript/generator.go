// Package luascript implements model.Generator with a sandboxed GopherLua
// script that stands in for a generative model.
//
// A script defines a global function generate(prompt, max_tokens,
// temperature) returning the response text. Returning nil or an empty
// string maps to model.ErrNoResponse.
package luascript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/model"
)

const generateFunc = "generate"

var (
	// ErrNoGenerate is returned when the loaded scripts define no generate function.
	ErrNoGenerate = errors.New("luascript: scripts define no generate function")
	// ErrClosed is returned by Generate after Close.
	ErrClosed = errors.New("luascript: generator closed")
)

// Options configures a Generator.
type Options struct {
	// Path is a .lua file or a directory whose *.lua files load in
	// lexicographic order.
	Path string
	// InstructionLimit bounds opcodes per load and per call; <= 0 uses
	// DefaultInstructionLimit.
	InstructionLimit int
}

// Generator owns one sandboxed LState. Calls are serialized because an
// LState is single-threaded.
type Generator struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	logger *zap.Logger
}

// New loads the scripts at opts.Path.
//
// Precondition: opts.Path names a readable file or directory.
// Postcondition: Returns a Generator whose scripts define generate, or an error.
func New(opts Options, logger *zap.Logger) (*Generator, error) {
	files, err := scriptFiles(opts.Path)
	if err != nil {
		return nil, err
	}
	g := newGenerator(opts.InstructionLimit, logger)
	for _, path := range files {
		if err := g.load(func(L *lua.LState) error { return L.DoFile(path) }); err != nil {
			g.Close()
			return nil, fmt.Errorf("luascript: loading %q: %w", path, err)
		}
	}
	if err := g.checkGenerate(); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// NewFromSource builds a Generator from a Lua chunk.
func NewFromSource(src string, instLimit int, logger *zap.Logger) (*Generator, error) {
	g := newGenerator(instLimit, logger)
	if err := g.load(func(L *lua.LState) error { return L.DoString(src) }); err != nil {
		g.Close()
		return nil, fmt.Errorf("luascript: loading source: %w", err)
	}
	if err := g.checkGenerate(); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

func newGenerator(instLimit int, logger *zap.Logger) *Generator {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	L := newSandboxedState()
	registerModules(L)
	return &Generator{L: L, limit: instLimit, logger: logger}
}

func scriptFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("luascript: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("luascript: reading script dir %q: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (g *Generator) load(run func(*lua.LState) error) error {
	ctx, cancel := newCountingContext(context.Background(), g.limit)
	defer cancel()
	g.L.SetContext(ctx)
	defer g.L.RemoveContext()
	return run(g.L)
}

func (g *Generator) checkGenerate() error {
	if g.L.GetGlobal(generateFunc).Type() != lua.LTFunction {
		return ErrNoGenerate
	}
	return nil
}

// Generate implements model.Generator. The call is bounded by both ctx and
// the instruction limit.
func (g *Generator) Generate(ctx context.Context, req model.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("luascript: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.L == nil {
		return "", ErrClosed
	}

	cctx, cancel := newCountingContext(ctx, g.limit)
	defer cancel()
	g.L.SetContext(cctx)
	defer g.L.RemoveContext()

	err := g.L.CallByParam(lua.P{
		Fn:      g.L.GetGlobal(generateFunc),
		NRet:    1,
		Protect: true,
	}, lua.LString(req.Prompt), lua.LNumber(req.MaxTokens), lua.LNumber(req.Temperature))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("luascript: %w", ctxErr)
		}
		g.logger.Warn("luascript: Lua runtime error", zap.Error(err))
		return "", fmt.Errorf("luascript: %w", err)
	}

	ret := g.L.Get(-1)
	g.L.Pop(1)
	s, ok := ret.(lua.LString)
	if !ok || strings.TrimSpace(string(s)) == "" {
		return "", model.ErrNoResponse
	}
	return strings.TrimSpace(string(s)), nil
}

// Close releases the LState. Generate returns ErrClosed afterwards.
func (g *Generator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.L != nil {
		g.L.Close()
		g.L = nil
	}
}
