package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/media"
	"github.com/lazvid/backend/internal/timeline"
)

const articleWrapWidth = 100

type generateOptions struct {
	Lang    string
	Format  string // text, srt or vtt
	Model   string
	Article string // "", refine or summary
	Plain   bool   // print article Markdown without terminal styling
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate <media>",
	Short: "Transcribe a local media file with Gemini",
	Long: `Transcribe and translate a local video or audio file with Gemini and
print the timestamped transcript. GEMINI_API_KEY must be set.

With --format srt or vtt the transcript is printed as subtitles instead.
With --article refine or summary, a Markdown article is written from the
transcript and rendered for the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := genOpts.validate(); err != nil {
			return err
		}
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
		f, err := media.ReadFile(args[0], media.DefaultMaxBytes)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		model := genOpts.Model
		client := generate.NewGeminiClient(generate.StaticKey(key), func() string { return model })
		return runGenerate(ctx, client, f, genOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genOpts.Lang, "lang", "l", generate.DefaultTargetLanguage, "target language")
	generateCmd.Flags().StringVarP(&genOpts.Format, "format", "f", "text", "output: text, srt or vtt")
	generateCmd.Flags().StringVarP(&genOpts.Model, "model", "m", generate.DefaultGeminiModel, "Gemini model")
	generateCmd.Flags().StringVar(&genOpts.Article, "article", "", "also write an article: refine or summary")
	generateCmd.Flags().BoolVar(&genOpts.Plain, "plain", false, "print article Markdown as is")
}

func (o generateOptions) validate() error {
	if o.Format != "text" {
		if _, err := timeline.ParseFormat(o.Format); err != nil {
			return err
		}
	}
	switch o.Article {
	case "", "refine", "summary":
		return nil
	}
	return fmt.Errorf("unknown article %q (want refine or summary)", o.Article)
}

func runGenerate(ctx context.Context, gen generate.Generator, f *media.File, o generateOptions, stdout, stderr io.Writer) error {
	fmt.Fprintf(stderr, "Transcribing %s (%s, %d bytes) into %s...\n",
		f.Name, f.MimeType, f.Size, generate.LanguageLabel(o.Lang))

	raw, err := gen.Transcribe(ctx, generate.Media{Data: f.Data, MimeType: f.MimeType}, o.Lang)
	if err != nil {
		return errors.New(generate.AsError(err).Message())
	}

	tl := timeline.Parse(raw)
	switch {
	case o.Format != "text":
		out, err := exportTranscript(raw, o.Format)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, out)
	case tl.Len() == 0:
		fmt.Fprint(stdout, raw)
	default:
		fmt.Fprintln(stdout, tl.Lines())
	}

	if o.Article == "" {
		return nil
	}
	fmt.Fprintf(stderr, "Writing %s...\n", o.Article)
	var article string
	if o.Article == "refine" {
		article, err = gen.Refine(ctx, raw, o.Lang)
	} else {
		article, err = gen.Summarize(ctx, raw, o.Lang)
	}
	if err != nil {
		return errors.New(generate.AsError(err).Message())
	}
	if !o.Plain {
		article = renderMarkdown(article)
	}
	fmt.Fprintln(stdout, article)
	return nil
}

// renderMarkdown styles md for the terminal, or returns it unchanged when
// the renderer fails.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(articleWrapWidth),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
