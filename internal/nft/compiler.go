package nft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrCompilation is returned when solc reports at least one error.
var ErrCompilation = errors.New("nft: compilation failed")

// CompileRunner executes solc with the standard JSON input on stdin.
type CompileRunner func(ctx context.Context, input []byte) ([]byte, error)

// Compiler compiles a Solidity source with an external solc binary.
type Compiler struct {
	Solc         string   // solc executable, "solc" when empty
	BasePath     string   // directory the source and relative imports live in
	IncludePaths []string // extra import roots, e.g. node_modules
	OptimizeRuns int

	// Run overrides process execution, mainly for tests.
	Run CompileRunner
}

// NewCompiler returns a compiler rooted at dir with node_modules on the
// import path and the optimizer at 200 runs.
func NewCompiler(dir string) *Compiler {
	return &Compiler{
		BasePath:     dir,
		IncludePaths: []string{filepath.Join(dir, "node_modules")},
		OptimizeRuns: 200,
	}
}

// Diagnostic is one solc error or warning.
type Diagnostic struct {
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

func (d Diagnostic) String() string {
	if d.FormattedMessage != "" {
		return strings.TrimSpace(d.FormattedMessage)
	}
	return d.Severity + ": " + d.Message
}

// CompileResult holds the artifact and any warnings solc printed.
type CompileResult struct {
	Artifact *Artifact
	Warnings []Diagnostic
}

type solcInput struct {
	Language string                     `json:"language"`
	Sources  map[string]solcInputSource `json:"sources"`
	Settings solcSettings               `json:"settings"`
}

type solcInputSource struct {
	Content string `json:"content"`
}

type solcSettings struct {
	Optimizer       solcOptimizer                  `json:"optimizer"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type solcOptimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

type solcOutput struct {
	Errors    []Diagnostic                             `json:"errors"`
	Contracts map[string]map[string]solcContractOutput `json:"contracts"`
}

type solcContractOutput struct {
	ABI json.RawMessage `json:"abi"`
	EVM struct {
		Bytecode Bytecode `json:"bytecode"`
	} `json:"evm"`
}

// Compile compiles source (a file name relative to BasePath) and returns the
// named contract.
func (c *Compiler) Compile(ctx context.Context, source, contract string) (*CompileResult, error) {
	content, err := os.ReadFile(filepath.Join(c.BasePath, source))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	runs := c.OptimizeRuns
	if runs <= 0 {
		runs = 200
	}
	input, err := json.Marshal(solcInput{
		Language: "Solidity",
		Sources:  map[string]solcInputSource{source: {Content: string(content)}},
		Settings: solcSettings{
			Optimizer: solcOptimizer{Enabled: true, Runs: runs},
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode.object"}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal solc input: %w", err)
	}

	run := c.Run
	if run == nil {
		run = c.execSolc
	}
	raw, err := run(ctx, input)
	if err != nil {
		return nil, err
	}
	return parseSolcOutput(raw, source, contract)
}

func parseSolcOutput(raw []byte, source, contract string) (*CompileResult, error) {
	var out solcOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse solc output: %w", err)
	}

	result := &CompileResult{}
	var failures []string
	for _, d := range out.Errors {
		if d.Severity == "error" {
			failures = append(failures, d.String())
			continue
		}
		result.Warnings = append(result.Warnings, d)
	}
	if len(failures) > 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrCompilation, strings.Join(failures, "\n"))
	}

	compiled, ok := out.Contracts[source][contract]
	if !ok {
		return nil, fmt.Errorf("contract %s not found in %s output", contract, source)
	}

	art := &Artifact{ContractName: contract, ABI: compiled.ABI, Bytecode: compiled.EVM.Bytecode}
	if err := art.validate(); err != nil {
		return nil, err
	}
	result.Artifact = art
	return result, nil
}

func (c *Compiler) execSolc(ctx context.Context, input []byte) ([]byte, error) {
	bin := c.Solc
	if bin == "" {
		bin = "solc"
	}
	args := []string{"--standard-json"}
	if c.BasePath != "" {
		args = append(args, "--base-path", c.BasePath)
	}
	for _, p := range c.IncludePaths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("include path %s: %w (run npm install first)", p, err)
		}
		args = append(args, "--include-path", p)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
