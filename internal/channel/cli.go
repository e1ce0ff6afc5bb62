package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

// CLI is the interactive terminal surface.
type CLI struct {
	logger *slog.Logger
	in     io.Reader
	out    io.Writer

	thinkMu   sync.Mutex
	thinking  bool
	thinkStop chan struct{}
}

type CLIConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{logger: cfg.Logger, in: cfg.In, out: cfg.Out}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until EOF, /quit, or ctx cancellation.
func (c *CLI) Start(ctx context.Context, router domain.Router) error {
	fmt.Fprintln(c.out, "Sohbet botu hazır. Mesajını yazıp Enter'a bas. Çıkmak için /quit.")
	fmt.Fprint(c.out, "Sen> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(c.out, "Sen> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("cli session ended by user")
			return nil
		}

		c.startThinking()
		result := router.Route(ctx, "cli", line)
		c.stopThinking()

		fmt.Fprint(c.out, "\r\033[K")
		fmt.Fprintln(c.out, "--- Bot ---")
		fmt.Fprintln(c.out, renderText(result))
		fmt.Fprintln(c.out, "-----------")
		fmt.Fprint(c.out, "Sen> ")
	}
}

func (c *CLI) Stop() error { return nil }

func (c *CLI) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func(stop chan struct{}) {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Düşünüyorum...", frames[i%len(frames)])
			}
		}
	}(c.thinkStop)
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}
