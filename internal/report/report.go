// Package report renders human-facing console output: banners, result
// tables and a progress spinner.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/storage"
)

const rule = "=============================================================================="

// Reporter writes console output to Out.
type Reporter struct {
	Out io.Writer
	// Interactive enables the animated spinner.
	Interactive bool
}

// New returns a Reporter for out. The spinner animates only when out is a
// terminal.
func New(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}
	return &Reporter{Out: out, Interactive: interactive}
}

func (r *Reporter) newTable(title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Out)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	return t
}

// Banner prints a titled block of lines.
func (r *Reporter) Banner(title string, lines ...string) {
	green := color.New(color.FgGreen).SprintFunc()
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("        " + green(title) + "\n")
	b.WriteString(rule + "\n")
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString(rule)
	fmt.Fprintln(r.Out, b.String())
}

// Success prints a green confirmation line.
func (r *Reporter) Success(msg string) {
	fmt.Fprintln(r.Out, color.New(color.FgGreen, color.Bold).Sprint("✅ "+msg))
}

// Field prints a bold blue label followed by a value.
func (r *Reporter) Field(label, value string) {
	fmt.Fprintf(r.Out, "%s %s\n", color.New(color.FgBlue, color.Bold).Sprint(label), value)
}

// Error prints err in a red box.
func (r *Reporter) Error(err error) {
	red := color.New(color.FgRed).SprintFunc()
	msg := err.Error()
	width := max(len(msg), 20)
	box := "┌────── " + red("⚠ Error") + " " + strings.Repeat("─", width-13) + "┐\n"
	box += fmt.Sprintf("│ %-*s │\n", width, msg)
	box += "└" + strings.Repeat("─", width+2) + "┘"
	fmt.Fprintln(r.Out, box)
}

// CrawlResults renders the crawl summary table.
func (r *Reporter) CrawlResults(result *crawlrun.Result) {
	t := r.newTable("🔍 Crawl Results", table.Row{"Metric", "Value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, WidthMax: 20},
		{Number: 2, Align: text.AlignLeft, WidthMax: 80},
	})

	success := "❌"
	if result.Success {
		success = "✅"
	}
	t.AppendRow(table.Row{"Success", success})
	t.AppendRow(table.Row{"Status", result.Status})
	t.AppendRow(table.Row{"Pages", fmt.Sprintf("%d/%d", result.Completed, result.Total)})
	t.AppendRow(table.Row{"Credits Used", strconv.Itoa(result.CreditsUsed)})
	t.Render()
}

// FileCounts renders the per-type file counts of a run directory.
func (r *Reporter) FileCounts(dir string) error {
	groups := []struct {
		label   string
		pattern string
	}{
		{"HTML", "*_html.html"},
		{"Markdown", "*_md.md"},
		{"Metadata", "*_meta.json"},
		{"LLMs Full", crawlrun.AggregateFile},
	}

	t := r.newTable("📁 File Counts", table.Row{"File Type", "Count", "Size"})
	for _, g := range groups {
		matches, err := filepath.Glob(filepath.Join(dir, g.pattern))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			continue
		}
		stats, err := FileStats(matches[0])
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{g.label, strconv.Itoa(len(matches)), stats})
	}
	t.Render()
	return nil
}

// FileStats describes a file as "<lines> lines (<size> KB)".
func FileStats(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	lines := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		return "", err
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("%d lines (%.1f KB)", lines, float64(info.Size())/1024), nil
}

// ConvertSummary renders the outcome of a batch conversion.
func (r *Reporter) ConvertSummary(rep *markdown.Report) {
	t := r.newTable("📝 Conversion Summary", table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Converted", strconv.Itoa(rep.Succeeded)})
	t.AppendRow(table.Row{"Failed", strconv.Itoa(rep.Failed)})
	t.Render()

	if len(rep.Failures) == 0 {
		return
	}
	ft := r.newTable("", table.Row{"File", "Error"})
	ft.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	for _, f := range rep.Failures {
		ft.AppendRow(table.Row{f.Path, f.Err.Error()})
	}
	ft.Render()
}

// Runs renders the crawl run history.
func (r *Reporter) Runs(runs []*storage.Run) {
	t := r.newTable("🕘 Crawl Runs", table.Row{"Created", "URL", "Status", "Pages", "Credits", "Directory"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.CreatedAt.Local().Format(time.DateTime),
			run.URL,
			run.Status,
			strconv.Itoa(run.Pages),
			strconv.Itoa(run.CreditsUsed),
			run.Dir,
		})
	}
	t.Render()
}

// Spinner shows progress while a blocking call runs.
type Spinner struct {
	out         io.Writer
	interactive bool

	mu      sync.Mutex
	message string
	done    chan bool
	stopped chan struct{}
	once    sync.Once
}

// StartSpinner starts a spinner with message. On a non-interactive output
// the message is printed once and updates are ignored.
func (r *Reporter) StartSpinner(message string) *Spinner {
	s := &Spinner{
		out:         r.Out,
		interactive: r.Interactive,
		message:     message,
		done:        make(chan bool),
		stopped:     make(chan struct{}),
	}
	if !s.interactive {
		fmt.Fprintf(s.out, "%s...\n", message)
		close(s.stopped)
		return s
	}

	go func() {
		defer close(s.stopped)
		frames := `|/-\`
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s... [%s]", color.YellowString("%s", s.message), string(frames[i]))
				s.mu.Unlock()
				i = (i + 1) % len(frames)
			case ok := <-s.done:
				mark, paint := "✔", color.GreenString
				if !ok {
					mark, paint = "✘", color.RedString
				}
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s... [%s]\n", paint("%s", s.message), mark)
				s.mu.Unlock()
				return
			}
		}
	}()
	return s
}

// Update replaces the spinner message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop ends the spinner, marking it as succeeded or failed.
func (s *Spinner) Stop(ok bool) {
	s.once.Do(func() {
		if s.interactive {
			s.done <- ok
		}
		<-s.stopped
	})
}
