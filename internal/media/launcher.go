// Package media hands article links and images to external programs.
package media

import (
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/validation"
)

type Kind int

const (
	KindPage Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "page"
}

type Launcher struct {
	imageViewer   string
	defaultOpener string
	registry      *Registry
	validator     *validation.URLValidator
	imageExts     []string

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewRegistry()
	if err != nil {
		debuglog.Warnf("media: %v", err)
		if registry == nil {
			registry, _ = parseRegistry(openersTOML, runtime.GOOS)
		}
	}
	return newLauncher(cfg, registry, exec.LookPath, startDetached)
}

func newLauncher(cfg *config.Config, registry *Registry, lookPath func(string) (string, error), start func(*exec.Cmd) error) *Launcher {
	l := &Launcher{
		registry:  registry,
		validator: validation.NewURLValidator(),
		imageExts: registry.Extensions("image"),
		lookPath:  lookPath,
		start:     start,
	}

	l.defaultOpener = cfg.Media.DefaultOpener
	if l.defaultOpener == "" {
		l.defaultOpener = registry.DefaultOpener()
	}

	var viewers config.MediaViewers
	switch registry.goos {
	case "darwin":
		viewers = cfg.Media.Darwin
	case "windows":
		viewers = cfg.Media.Windows
	default:
		viewers = cfg.Media.Linux
	}
	l.imageViewer = l.findCommand(viewers.Image...)
	if l.imageViewer == "" {
		l.imageViewer = l.defaultOpener
	}
	return l
}

// Detect classifies target by the extension of its path.
func (l *Launcher) Detect(target string) Kind {
	u, err := url.Parse(target)
	if err != nil {
		return KindPage
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if ext != "" && slices.Contains(l.imageExts, ext) {
		return KindImage
	}
	return KindPage
}

// Open validates target and opens it with the image viewer or the
// platform's default handler, depending on its kind.
func (l *Launcher) Open(target string) error {
	normalized, err := l.validator.Normalize(target)
	if err != nil {
		return fmt.Errorf("refusing to open %q: %w", target, err)
	}
	return l.launch(l.Detect(normalized), normalized)
}

// OpenImage opens target in the image viewer regardless of its extension;
// news image URLs often have none.
func (l *Launcher) OpenImage(target string) error {
	normalized, err := l.validator.Normalize(target)
	if err != nil {
		return fmt.Errorf("refusing to open %q: %w", target, err)
	}
	return l.launch(KindImage, normalized)
}

func (l *Launcher) launch(kind Kind, target string) error {
	program := l.defaultOpener
	if kind == KindImage {
		program = l.imageViewer
	}
	if program == "" {
		return fmt.Errorf("no application found to open %s", kind)
	}

	exe, args, err := l.registry.Command(program, target)
	if err != nil {
		exe, args = program, []string{target}
	}

	debuglog.Infof("opening %s with %s", kind, exe)
	cmd := exec.Command(exe, args...)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", program, err)
	}
	return nil
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, name := range commands {
		exe, ok := l.registry.Executable(name)
		if !ok {
			continue
		}
		if _, err := l.lookPath(exe); err == nil {
			return name
		}
	}
	return ""
}

// startDetached starts a GUI program without waiting for it.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
