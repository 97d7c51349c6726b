package generate

import (
	"context"
	"log/slog"

	"github.com/dilla-go/dilla/internal/schema"
)

// ImageSynth produces an image file and returns its stored path.
type ImageSynth interface {
	Paint(ctx context.Context, resolution string) (string, error)
}

// Resolver decides, per field, which generator fills it.
type Resolver struct {
	gen    *Generators
	exprs  *Expressions
	images ImageSynth
	logger *slog.Logger

	imagesWarned bool
}

// NewResolver returns a resolver over g. images may be nil, in which case
// image fields are left unset.
func NewResolver(g *Generators, images ImageSynth) *Resolver {
	return &Resolver{
		gen:    g,
		exprs:  NewExpressions(g),
		images: images,
		logger: g.logger,
	}
}

// Generators returns the generators the resolver dispatches to.
func (r *Resolver) Generators() *Generators { return r.gen }

// Resolve picks a value for f on model m. The first applicable rule wins:
// skip list, random values, image synthesis, policy generator, kind
// generator. Fields without any generator are left unset.
func (r *Resolver) Resolve(ctx context.Context, m *schema.Model, f *schema.Field) Decision {
	mp := m.Policy
	if mp.SkipsField(f.Name) {
		r.logger.Info("skipping field", "model", m.Key(), "field", f.Name)
		return Skip
	}

	fp := mp.Field(f.Name)
	if fp != nil && len(fp.RandomValues) > 0 {
		return Value(fp.RandomValues[r.gen.src.IntN(len(fp.RandomValues))])
	}

	if mp.IsImageField(f.Name) {
		return r.image(ctx, m, f, fp)
	}

	if fp != nil {
		if d, ok := r.fromPolicy(m, f, fp); ok {
			return d
		}
	}

	return r.gen.Generate(Request{Model: m, Field: f, Policy: fp})
}

func (r *Resolver) image(ctx context.Context, m *schema.Model, f *schema.Field, fp *schema.FieldPolicy) Decision {
	if r.images == nil {
		if !r.imagesWarned {
			r.imagesWarned = true
			r.logger.Warn("image synthesis unavailable, leaving image fields unset")
		}
		return Unset
	}
	res := r.resolution(m.Policy, fp)
	p, err := r.images.Paint(ctx, res)
	if err != nil {
		r.logger.Warn("image synthesis failed, leaving field unset",
			"model", m.Key(), "field", f.Name, "resolution", res, "error", err)
		return Unset
	}
	return Value(p)
}

// resolution prefers the field policy, then the model policy, then
// DefaultResolution. A set of sizes is sampled uniformly.
func (r *Resolver) resolution(mp *schema.ModelPolicy, fp *schema.FieldPolicy) string {
	switch {
	case fp != nil && len(fp.ImageSizes) > 0:
		return fp.ImageSizes[r.gen.src.IntN(len(fp.ImageSizes))]
	case fp != nil && fp.ImageSize != "":
		return fp.ImageSize
	case len(mp.ImageResolutions) > 0:
		return mp.ImageResolutions[r.gen.src.IntN(len(mp.ImageResolutions))]
	case mp.ImageResolution != "":
		return mp.ImageResolution
	}
	return DefaultResolution
}

// fromPolicy runs a callable, expression or named generator. ok is false
// when the policy has none or it produced nothing.
func (r *Resolver) fromPolicy(m *schema.Model, f *schema.Field, fp *schema.FieldPolicy) (Decision, bool) {
	switch {
	case fp.Func != nil:
		var arg *schema.FieldPolicy
		if fp.WantsPolicy {
			arg = fp
		}
		if v := fp.Func(arg); v != nil {
			return Value(v), true
		}
	case fp.Expression != "":
		v, err := r.exprs.Eval(fp)
		if err != nil {
			r.logger.Warn("policy expression failed, using kind generator",
				"model", m.Key(), "field", f.Name, "error", err)
			return Decision{}, false
		}
		if v != nil {
			return Value(v), true
		}
	case fp.Generator != "":
		if v, ok := r.gen.Named(fp.Generator); ok {
			return Value(v), true
		}
	}
	return Decision{}, false
}
