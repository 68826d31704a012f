package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/localrivet/protext"
	"github.com/localrivet/protext/internal/service"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	sumText      string
	sumMaxLength int
	sumMinLength int
	sumFormat    string
	sumOutDir    string
	sumQuiet     bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a document, text or stdin",
	Long: `Summarize a PDF, Word (.docx) or plain text document. Without a file the
text comes from --text or, failing that, from stdin.

Examples:
  protext summarize paper.pdf
  protext summarize --text "Long text..." --max-length 80
  cat notes.txt | protext summarize -f yaml --out-dir ./out`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&sumText, "text", "t", "", "text to summarize")
	summarizeCmd.Flags().IntVar(&sumMaxLength, "max-length", 0, "maximum summary length per chunk in words, 30-300 (default from config)")
	summarizeCmd.Flags().IntVar(&sumMinLength, "min-length", 0, "minimum summary length per chunk in words, 10-100 (default from config)")
	summarizeCmd.Flags().StringVarP(&sumFormat, "format", "f", FormatText, "output format: text, json or yaml")
	summarizeCmd.Flags().StringVarP(&sumOutDir, "out-dir", "o", "", "write the summary and extracted text files to this directory")
	summarizeCmd.Flags().BoolVarP(&sumQuiet, "quiet", "q", false, "hide the progress bar")
}

// summarizeOptions is everything runSummarize gathered from flags and input.
type summarizeOptions struct {
	FileName string
	Data     []byte
	Text     string
	Settings service.Settings
	Format   string
	OutDir   string
	Progress service.ProgressFunc
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	opts := summarizeOptions{
		Text:     sumText,
		Format:   strings.ToLower(sumFormat),
		OutDir:   sumOutDir,
		Settings: service.Settings{MaxLength: cfg.Defaults.MaxLength, MinLength: cfg.Defaults.MinLength},
	}
	if sumMaxLength > 0 {
		opts.Settings.MaxLength = sumMaxLength
	}
	if sumMinLength > 0 {
		opts.Settings.MinLength = sumMinLength
	}
	if !validFormat(opts.Format) {
		return fmt.Errorf("unknown format %q: use text, json or yaml", sumFormat)
	}

	switch {
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		opts.FileName = filepath.Base(args[0])
		opts.Data = data
	case opts.Text == "":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		opts.Text = string(data)
	}

	if !sumQuiet {
		opts.Progress = newProgress(cmd.ErrOrStderr())
	}

	handle, store, svc, err := protext.CreateComponents(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer handle.Close()

	return summarize(cmd.Context(), svc, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// summarize runs the request, prints the response and writes the artifacts.
func summarize(ctx context.Context, svc *service.Service, opts summarizeOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var resp *service.Response
	var err error
	if opts.Data != nil {
		resp, err = svc.SummarizeDocument(ctx, service.DocumentRequest{
			FileName: opts.FileName,
			Data:     opts.Data,
			Settings: opts.Settings,
			Progress: opts.Progress,
		})
	} else {
		resp, err = svc.SummarizeText(ctx, service.TextRequest{
			Text:     opts.Text,
			Settings: opts.Settings,
			Progress: opts.Progress,
		})
	}
	if err != nil {
		return err
	}

	if err := renderResponse(out, resp, opts.Format); err != nil {
		return err
	}

	if opts.OutDir != "" {
		paths, err := writeArtifacts(ctx, svc, resp.Artifacts, opts.OutDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(errOut, "Saved %s\n", p)
		}
	}
	return nil
}

func validFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// renderResponse writes resp to w in the given format.
func renderResponse(w io.Writer, resp *service.Response, format string) error {
	switch format {
	case FormatJSON:
		output, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()

	default:
		var b strings.Builder
		if resp.File != nil {
			fmt.Fprintf(&b, "File: %s (%.2f KB, %s)\n\n", resp.File.Name, resp.File.SizeKB, resp.File.Type)
		}
		fmt.Fprintf(&b, "%s\n\n", resp.Summary)
		fmt.Fprintf(&b, "%s\n", resp.Report.String())
		if len(resp.Warnings) > 0 {
			b.WriteString("\nWarnings:\n")
			for _, warning := range resp.Warnings {
				fmt.Fprintf(&b, "  - %s\n", warning)
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
}

// writeArtifacts copies the stored downloads into dir and returns their paths.
func writeArtifacts(ctx context.Context, svc *service.Service, refs []service.ArtifactRef, dir string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, ref := range refs {
		a, err := svc.Artifact(ctx, ref.ID)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, a.FileName)
		if err := os.WriteFile(path, a.Content, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// newProgress returns a ProgressFunc drawing a bar on w. The bar is created
// on the first callback, once the chunk count is known.
func newProgress(w io.Writer) service.ProgressFunc {
	var bar *progressbar.ProgressBar
	var mu sync.Mutex

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan]Summarizing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		bar.Set(done)
	}
}
