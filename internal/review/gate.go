// Package review implements the human checkpoint that guards every
// state-changing application step. Nothing is submitted without an
// explicit approval, and any failure of the review channel itself is
// treated as a rejection.
package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/domain"
)

// Gate is a synchronous review checkpoint
type Gate interface {
	// Review blocks until the reviewer decides or the request times out.
	// Implementations must never return an approved response on error.
	Review(ctx context.Context, req domain.ReviewRequest) (domain.ReviewResponse, error)
}

// TerminalGate collects review decisions from an interactive terminal
type TerminalGate struct {
	in      *bufio.Reader
	out     io.Writer
	timeout time.Duration
	logger  *zap.Logger

	readOnce sync.Once
	answers  chan answer
}

type answer struct {
	line string
	err  error
}

// NewTerminalGate creates a gate reading decisions from in, typically
// os.Stdin. A zero timeout waits indefinitely.
func NewTerminalGate(in io.Reader, out io.Writer, timeout time.Duration, logger *zap.Logger) *TerminalGate {
	return &TerminalGate{
		in:      bufio.NewReader(in),
		out:     out,
		timeout: timeout,
		logger:  logger,
		answers: make(chan answer),
	}
}

// readLoop is the only reader of the input stream. An answer typed
// after a review timed out is parked on the unbuffered channel and
// delivered to the next review instead of racing a fresh read for bytes.
func (g *TerminalGate) readLoop() {
	for {
		line, err := g.in.ReadString('\n')
		g.answers <- answer{line: line, err: err}
		if err != nil {
			close(g.answers)
			return
		}
	}
}

// Review presents the request and waits for a decision. Anything other
// than an explicit yes, including a timeout or a read error, rejects.
func (g *TerminalGate) Review(ctx context.Context, req domain.ReviewRequest) (domain.ReviewResponse, error) {
	g.readOnce.Do(func() { go g.readLoop() })

	g.present(req)

	var timeoutC <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-ctx.Done():
		g.logger.Warn("review interrupted", zap.String("stage", string(req.Stage)))
		return domain.ReviewResponse{Approved: false, Notes: "review interrupted"}, ctx.Err()

	case <-timeoutC:
		g.logger.Warn("review timed out",
			zap.String("stage", string(req.Stage)),
			zap.Duration("timeout", g.timeout),
		)
		fmt.Fprintln(g.out)
		color.New(color.FgRed).Fprintln(g.out, "Review timed out; rejecting.")
		return domain.ReviewResponse{Approved: false, Notes: "review timed out"}, nil

	case a, ok := <-g.answers:
		if !ok {
			err := fmt.Errorf("review input closed")
			g.logger.Error("review channel failed", zap.Error(err))
			return domain.ReviewResponse{Approved: false, Notes: "review channel failure"}, err
		}
		if a.err != nil {
			g.logger.Error("review channel failed", zap.Error(a.err))
			return domain.ReviewResponse{Approved: false, Notes: "review channel failure"}, a.err
		}
		return decide(a.line), nil
	}
}

func decide(line string) domain.ReviewResponse {
	answer := strings.ToLower(strings.TrimSpace(line))
	switch answer {
	case "y", "yes", "approve", "approved":
		return domain.ReviewResponse{Approved: true}
	case "", "n", "no", "reject", "rejected":
		return domain.ReviewResponse{Approved: false}
	default:
		// Free text counts as a rejection with notes
		return domain.ReviewResponse{Approved: false, Notes: answer}
	}
}

func (g *TerminalGate) present(req domain.ReviewRequest) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	fmt.Fprintln(g.out)
	switch req.Stage {
	case domain.StageMappingReview:
		header.Fprintln(g.out, "== Field Mapping Review ==")
	case domain.StageSubmissionReview:
		header.Fprintln(g.out, "== Submission Review ==")
	default:
		header.Fprintf(g.out, "== %s Review ==\n", req.Stage)
	}
	dim.Fprintf(g.out, "Page: %s\n", req.PageURL)
	fmt.Fprintln(g.out, req.Message)

	if len(req.Mappings) > 0 {
		fmt.Fprintln(g.out)
		for _, m := range req.Mappings {
			method := color.GreenString(m.Method)
			if m.Confidence < 0.5 {
				method = color.YellowString(m.Method)
			}
			fmt.Fprintf(g.out, "  %-30s -> %-20s %q  (%s %.1f)\n",
				truncate(m.FieldLabel, 30), m.Attribute, truncate(m.Value, 40), method, m.Confidence)
		}
	}

	for _, w := range req.Warnings {
		color.New(color.FgYellow).Fprintf(g.out, "  warning: %s\n", w)
	}

	fmt.Fprintln(g.out)
	fmt.Fprint(g.out, "Approve? [y/N]: ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
