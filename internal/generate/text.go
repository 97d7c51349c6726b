package generate

import (
	"strings"

	"github.com/dilla-go/dilla/internal/schema"
)

// Text builds a short text value. With a max length the value keeps its
// trailing characters so a unique salt survives the cut.
func (g *Generators) Text(f *schema.Field, p *schema.FieldPolicy) string {
	n := g.src.Between(1, 4)
	explicit := p.HasWordCount()
	if explicit {
		n = g.count(p.WordCount, p.WordCountRange)
	}

	result := g.src.Words(n)
	if f.Unique {
		result += " " + g.src.Digits(g.src.Between(1, 16))
	}
	if f.MaxLength > 0 {
		result = keepTail(result, f.MaxLength)
	}
	result = strings.TrimRight(result, " ")

	// An explicit word count keeps its spaces even when spaces are disallowed.
	if !p.AllowSpaces() && !explicit {
		result = strings.ReplaceAll(result, " ", "")
	}
	return result
}

// LongText builds newline separated paragraphs.
func (g *Generators) LongText(p *schema.FieldPolicy) string {
	n := g.src.Between(1, 3)
	explicit := p.HasParagraphCount()
	if explicit {
		n = g.count(p.ParagraphCount, p.ParagraphCountRange)
	}

	paragraphs := make([]string, n)
	for i := range paragraphs {
		paragraphs[i] = g.src.Paragraph()
	}
	result := strings.Join(paragraphs, "\n")

	if !p.AllowSpaces() && !explicit {
		result = strings.ReplaceAll(result, " ", "")
	}
	return result
}

// Slug is Text with spaces turned into underscores.
func (g *Generators) Slug(f *schema.Field, p *schema.FieldPolicy) string {
	return strings.TrimRight(strings.ReplaceAll(g.Text(f, p), " ", "_"), "_")
}

func (g *Generators) text(req Request) Decision {
	return Value(g.Text(req.Field, req.Policy))
}

func (g *Generators) longText(req Request) Decision {
	return Value(g.LongText(req.Policy))
}

func (g *Generators) slug(req Request) Decision {
	return Value(g.Slug(req.Field, req.Policy))
}

// count picks from rng when it is a valid range, else uses n. Counts below
// one are raised to one.
func (g *Generators) count(n int, rng []int) int {
	if len(rng) >= 2 && rng[0] >= 0 && rng[0] <= rng[1] {
		n = g.src.Between(rng[0], rng[1])
	}
	if n < 1 {
		n = 1
	}
	return n
}

func keepTail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
