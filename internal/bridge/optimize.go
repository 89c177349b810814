package bridge

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/resource"
)

const optimizedMarker = "# optimized-for: "

// OptimizeFor writes the tier variant of script next to it and returns the
// variant's reference. The variant is always rebuilt from the generic
// script, so repeated calls produce the same file.
func (b *Bridge) OptimizeFor(tier resource.Tier, script string) (string, error) {
	if !tier.Valid() {
		return "", fmt.Errorf("invalid tier %d", int(tier))
	}
	src, err := b.scriptPath(script)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", script, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", script, pathless(err))
	}
	body, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", script, pathless(err))
	}

	ref := variantName(script, tier)
	dst, err := b.scriptPath(ref)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".optimize-*")
	if err != nil {
		return "", fmt.Errorf("create variant: %w", pathless(err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(annotate(body, tier)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write variant: %w", pathless(err))
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod variant: %w", pathless(err))
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close variant: %w", pathless(err))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("install variant: %w", pathless(err))
	}

	b.logger.Info("wrote optimized script", zap.String("script", script), zap.String("variant", ref))
	return ref, nil
}

// annotate inserts a comment block with the tier ceilings after the
// shebang line, if any.
func annotate(body []byte, tier resource.Tier) []byte {
	c := resource.Constraints(tier)

	var header strings.Builder
	header.WriteString(optimizedMarker + tier.String() + "\n")
	header.WriteString("# max-memory-mb: " + strconv.FormatFloat(c.MaxMemoryMB, 'f', -1, 64) + "\n")
	header.WriteString("# max-time-s: " + strconv.FormatFloat(c.MaxTimeSec, 'f', -1, 64) + "\n")
	header.WriteString("# max-concurrent-ops: " + strconv.Itoa(c.MaxConcurrentOps) + "\n")
	header.WriteString("# formats: " + strings.Join(c.Formats, ",") + "\n")

	var out bytes.Buffer
	rest := body
	if bytes.HasPrefix(body, []byte("#!")) {
		line, after, found := bytes.Cut(body, []byte("\n"))
		out.Write(line)
		out.WriteByte('\n')
		if found {
			rest = after
		} else {
			rest = nil
		}
	}
	out.WriteString(header.String())
	out.Write(rest)
	return out.Bytes()
}
