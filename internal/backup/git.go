package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/wasilibs/go-re2"
)

// Cloner fetches a repository working tree into dest and returns the checked out commit.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, token, dest string) (commit string, err error)
}

// GitCloner runs the git binary.
type GitCloner struct {
	Binary  string
	Depth   int // 0 = full history
	Timeout time.Duration
}

// NewGitCloner creates a cloner with defaults for empty fields.
func NewGitCloner(binary string, depth int, timeout time.Duration) *GitCloner {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &GitCloner{Binary: binary, Depth: depth, Timeout: timeout}
}

func (g *GitCloner) Clone(ctx context.Context, cloneURL, token, dest string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	args := []string{"clone", "--quiet"}
	if g.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(g.Depth))
	}
	args = append(args, AuthURL(cloneURL, token), dest)

	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		if ctx.Err() != nil {
			detail = fmt.Sprintf("%s (%v)", detail, ctx.Err())
		}
		return "", fmt.Errorf("Git clone failed: %s", Redact(detail, token))
	}

	rev := exec.CommandContext(ctx, g.Binary, "-C", dest, "rev-parse", "HEAD")
	commit, err := rev.Output()
	if err != nil {
		// пустой репозиторий без коммитов
		return "", nil
	}
	return strings.TrimSpace(string(commit)), nil
}

// AuthURL injects the token into an https clone URL so private repositories can be fetched.
func AuthURL(cloneURL, token string) string {
	if token == "" || !strings.HasPrefix(cloneURL, "https://") {
		return cloneURL
	}
	return "https://x-access-token:" + token + "@" + strings.TrimPrefix(cloneURL, "https://")
}

var credentialsInURL = re2.MustCompile(`(https?://)[^@/\s]+@`)

// Redact removes the token and any URL credentials from s.
func Redact(s, token string) string {
	if token != "" {
		s = strings.ReplaceAll(s, token, "***")
	}
	return credentialsInURL.ReplaceAllString(s, "${1}***@")
}
