package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/resource"
	"go-pipeline-engine/pkg/metrics"
)

const (
	DefaultTimeout = 30 * time.Second

	// waitDelay bounds how long Wait blocks on pipes held open by
	// descendants after the child has been killed.
	waitDelay      = time.Second
	maxStderrBytes = 4 << 10
)

type Config struct {
	// Interpreter is split on whitespace, e.g. "python3 -u". Empty runs
	// the script directly.
	Interpreter string
	ScriptDir   string
	// ScratchDir defaults to the OS temp directory.
	ScratchDir string
	Timeout    time.Duration
	Env        map[string]string
}

// Bridge runs scripts in an external interpreter and exchanges JSON
// through a pair of scratch files.
type Bridge struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Request struct {
	Script  string
	Input   any
	Tier    resource.Tier
	Timeout time.Duration
	Env     map[string]string
	// OnScratch is called with each scratch path before it is written.
	OnScratch func(path string)
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Bridge {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{cfg: cfg, logger: logger.Named("bridge"), metrics: m}
}

// Execute runs req.Script with the scratch input and output paths as its
// two arguments and returns the decoded output file. Both scratch files
// are removed before Execute returns.
func (b *Bridge) Execute(ctx context.Context, req Request) (any, error) {
	script, err := b.resolve(req.Script, req.Tier)
	if err != nil {
		b.metrics.RecordBridge("not_found")
		return nil, &ScriptError{Kind: ErrScriptNotFound, Script: req.Script, Err: pathless(err)}
	}

	inPath, outPath := b.scratchPair()
	if req.OnScratch != nil {
		req.OnScratch(inPath)
		req.OnScratch(outPath)
	}
	defer b.cleanup(inPath, outPath)

	data, err := json.Marshal(req.Input)
	if err != nil {
		return nil, &ScriptError{Kind: ErrScriptFailed, Script: req.Script, Err: fmt.Errorf("encode input: %w", err)}
	}
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, &ScriptError{Kind: ErrScriptFailed, Script: req.Script, Err: fmt.Errorf("write input: %w", pathless(err))}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.cfg.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := b.command(script, inPath, outPath)
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Env = b.environ(req)
	cmd.WaitDelay = waitDelay
	killGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	b.logger.Debug("running script",
		zap.String("script", req.Script),
		zap.Stringer("tier", req.Tier),
		zap.Duration("timeout", timeout),
	)
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		b.metrics.RecordBridge("timeout")
		b.logger.Warn("script timed out", zap.String("script", req.Script), zap.Duration("elapsed", elapsed))
		return nil, &ScriptError{
			Kind:   ErrTimeout,
			Script: req.Script,
			Err:    fmt.Errorf("exceeded %s", timeout),
		}
	}
	if runErr != nil {
		b.metrics.RecordBridge("failed")
		se := &ScriptError{
			Kind:     ErrScriptFailed,
			Script:   req.Script,
			ExitCode: -1,
			Stderr:   tail(stderr.String(), maxStderrBytes),
			Err:      pathless(runErr),
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			se.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			se.Err = ctx.Err()
		}
		b.logger.Warn("script failed",
			zap.String("script", req.Script),
			zap.Int("exit_code", se.ExitCode),
			zap.String("stderr", se.Stderr),
		)
		return nil, se
	}
	if stdout.Len() > 0 {
		b.logger.Debug("script stdout", zap.String("script", req.Script), zap.String("stdout", tail(stdout.String(), maxStderrBytes)))
	}

	out, err := readOutput(outPath)
	if err != nil {
		b.metrics.RecordBridge("invalid_output")
		return nil, &ScriptError{Kind: ErrInvalidOutput, Script: req.Script, Stderr: tail(stderr.String(), maxStderrBytes), Err: err}
	}

	b.metrics.RecordBridge("success")
	b.logger.Debug("script finished", zap.String("script", req.Script), zap.Duration("elapsed", elapsed))
	return out, nil
}

func readOutput(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("no output file written")
		}
		return nil, fmt.Errorf("read output: %w", pathless(err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty output file")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return out, nil
}

// scratchPair returns unique input and output paths. The nanosecond
// timestamp orders files for humans; the uuid makes collisions between
// concurrent runs impossible.
func (b *Bridge) scratchPair() (string, string) {
	stem := fmt.Sprintf("bridge-%d-%s", time.Now().UnixNano(), uuid.NewString())
	return filepath.Join(b.cfg.ScratchDir, stem+"-in.json"),
		filepath.Join(b.cfg.ScratchDir, stem+"-out.json")
}

func (b *Bridge) cleanup(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("failed to remove scratch file", zap.Error(pathless(err)))
		}
	}
}

func (b *Bridge) command(script, inPath, outPath string) (string, []string) {
	fields := strings.Fields(b.cfg.Interpreter)
	if len(fields) == 0 {
		return script, []string{inPath, outPath}
	}
	args := append(fields[1:], script, inPath, outPath)
	return fields[0], args
}

func (b *Bridge) environ(req Request) []string {
	env := os.Environ()
	for k, v := range b.cfg.Env {
		env = append(env, k+"="+v)
	}

	c := resource.Constraints(req.Tier)
	env = append(env,
		"PIPELINE_TIER="+req.Tier.String(),
		"PIPELINE_MAX_MEMORY_MB="+strconv.FormatFloat(c.MaxMemoryMB, 'f', -1, 64),
		"PIPELINE_MAX_TIME_S="+strconv.FormatFloat(c.MaxTimeSec, 'f', -1, 64),
		"PIPELINE_MAX_CONCURRENT_OPS="+strconv.Itoa(c.MaxConcurrentOps),
	)

	// exec keeps the last value for duplicate keys, so request overrides win.
	for k, v := range req.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// resolve prefers <name>.<tier><ext> over <name><ext>. Both are confined
// to the script directory.
func (b *Bridge) resolve(ref string, tier resource.Tier) (string, error) {
	if ref == "" {
		return "", errors.New("empty script reference")
	}
	if tier.Valid() {
		if p, err := b.scriptPath(variantName(ref, tier)); err == nil && isFile(p) {
			return p, nil
		}
	}
	p, err := b.scriptPath(ref)
	if err != nil {
		return "", err
	}
	if !isFile(p) {
		return "", os.ErrNotExist
	}
	return p, nil
}

func (b *Bridge) scriptPath(ref string) (string, error) {
	root := b.cfg.ScriptDir
	if root == "" {
		root = "."
	}
	return securejoin.SecureJoin(root, ref)
}

func variantName(ref string, tier resource.Tier) string {
	ext := filepath.Ext(ref)
	return strings.TrimSuffix(ref, ext) + "." + tier.String() + ext
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
