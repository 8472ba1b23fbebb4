package imageprompt

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/sync/errgroup"

	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/llm"
)

// AgentName labels translation calls in the metrics store.
const AgentName = "ImagePromptTranslator"

// ReviewMarker flags names that were derived from the id and need a human look.
const ReviewMarker = " ⚠️"

const maxConcurrentTranslations = 4

//go:embed prompts.md.tmpl
var tableTemplate string

var tableTmpl = template.Must(template.New("prompts").Parse(tableTemplate))

// Entry is one row of the prompt table.
type Entry struct {
	ID          string
	Name        string
	EnglishName string
	Prompt      string
	NeedsReview bool
}

// Generator builds image-generation prompts for catalog ingredients.
type Generator struct {
	translator llm.TextGenerator
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithTranslator lets the generator ask an LLM for names missing from the built-in map.
func WithTranslator(t llm.TextGenerator) Option {
	return func(g *Generator) { g.translator = t }
}

// WithClock overrides the clock used for the "Generated" date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build produces one entry per ingredient, in input order. Translation
// failures fall back to the id-derived name; only context cancellation is
// returned as an error.
func (g *Generator) Build(ctx context.Context, ingredients []catalog.Ingredient) ([]Entry, []llm.AgentMeta, error) {
	entries := make([]Entry, len(ingredients))
	var (
		mu    sync.Mutex
		metas []llm.AgentMeta
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentTranslations)

	for i, ing := range ingredients {
		if name, ok := englishNames[ing.Name]; ok {
			entries[i] = newEntry(ing, name, false)
			continue
		}
		if g.translator == nil {
			entries[i] = newEntry(ing, TitleCase(ing.ID)+ReviewMarker, true)
			continue
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			name, meta, err := g.translate(egCtx, ing.Name)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				log.Printf("Warning: failed to translate ingredient '%s': %v", ing.ID, err)
				entries[i] = newEntry(ing, TitleCase(ing.ID)+ReviewMarker, true)
				return nil
			}
			entries[i] = newEntry(ing, name, false)
			mu.Lock()
			metas = append(metas, meta)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, metas, fmt.Errorf("failed to build image prompts: %w", err)
	}
	return entries, metas, nil
}

func (g *Generator) translate(ctx context.Context, name string) (string, llm.AgentMeta, error) {
	prompt := fmt.Sprintf(
		"Translate the baby-food ingredient name %q into a short English noun phrase "+
			"suitable for describing it in a product photograph. Reply with the phrase only.", name)

	start := time.Now()
	resp, err := g.translator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", llm.AgentMeta{}, err
	}
	meta := llm.AgentMeta{AgentName: AgentName, Usage: resp.Usage, Latency: time.Since(start)}

	out := strings.TrimSpace(resp.Content)
	out = strings.Trim(out, "\"'`")
	out = strings.TrimSuffix(out, ".")
	if out == "" || strings.Contains(out, "\n") {
		return "", meta, fmt.Errorf("unusable translation %q", resp.Content)
	}
	return out, meta, nil
}

func newEntry(ing catalog.Ingredient, english string, review bool) Entry {
	return Entry{
		ID:          ing.ID,
		Name:        ing.Name,
		EnglishName: english,
		Prompt:      Prompt(english),
		NeedsReview: review,
	}
}

// Prompt returns the image-generation prompt for an English ingredient name.
func Prompt(englishName string) string {
	return fmt.Sprintf("A high-quality product photograph of raw %s, isolated on a completely transparent background, studio lighting, highly detailed, 8k resolution.", englishName)
}

// TitleCase turns a kebab-case id into space separated capitalized words.
func TitleCase(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Markdown renders the entries as the copy-paste prompt table.
func (g *Generator) Markdown(entries []Entry) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Entries   []Entry
		Generated string
	}{entries, g.now().Format("2006-01-02")}
	if err := tableTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt table: %w", err)
	}
	return buf.String(), nil
}

// HTML converts the markdown table to a standalone HTML document.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Ingredient AI Image Prompts",
	})
	return markdown.ToHTML([]byte(md), p, r)
}

// NeedsReview counts entries whose English name was derived from the id.
func NeedsReview(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.NeedsReview {
			n++
		}
	}
	return n
}
