package fingerprint

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/term"
)

// Environment is the set of signals the fingerprint is derived from.
type Environment struct {
	UserAgent       string
	Locale          string
	ScreenWidth     int
	ScreenHeight    int
	TZOffsetMinutes int
	RenderDigest    string
}

// Provider supplies the current Environment.
type Provider interface {
	Environment() Environment
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() Environment

func (f ProviderFunc) Environment() Environment { return f() }

// Static always returns env.
func Static(env Environment) Provider {
	return ProviderFunc(func() Environment { return env })
}

// System reads signals from the host process: the agent string names the
// platform, the locale comes from LC_ALL/LANG, screen geometry is the
// controlling terminal size, and the render digest hashes hardware traits
// that a graphics stack would normally reveal.
type System struct {
	Agent string
}

func (s System) Environment() Environment {
	agent := s.Agent
	if agent == "" {
		agent = "adsession"
	}
	env := Environment{
		UserAgent: fmt.Sprintf("%s (%s; %s)", agent, runtime.GOOS, runtime.GOARCH),
		Locale:    locale(),
	}
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		env.ScreenWidth, env.ScreenHeight = w, h
	}
	_, offset := time.Now().Zone()
	env.TZOffsetMinutes = offset / 60

	host, _ := os.Hostname()
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%d|%s", host, runtime.NumCPU(), runtime.Version())))
	env.RenderDigest = fmt.Sprintf("%x", sum[:8])
	return env
}

func locale() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			if i := strings.IndexAny(v, ".@"); i >= 0 {
				v = v[:i]
			}
			return strings.ReplaceAll(v, "_", "-")
		}
	}
	return "und"
}

// Compute returns the hex digest of env. Equal environments always produce
// equal digests.
func Compute(env Environment) string {
	canonical := strings.Join([]string{
		env.UserAgent,
		env.Locale,
		fmt.Sprintf("%dx%d", env.ScreenWidth, env.ScreenHeight),
		fmt.Sprintf("%d", env.TZOffsetMinutes),
		env.RenderDigest,
	}, "\x1f")
	sum := blake3.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum[:16])
}
