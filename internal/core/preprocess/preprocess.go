// Package preprocess turns raw administrative act text into the normalized form fed to
// the classifier. Steps run in a fixed order:
//
//	repair -> strip accents -> lowercase -> tokenize -> stopwords -> min length -> join
//
// Every step except repair, tokenize and join is switched by Config.
package preprocess

import (
	"runtime"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/normalize"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/record"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/validate"

	"golang.org/x/sync/errgroup"
)

// Preprocessor applies a fixed Config. It holds no mutable state after New and is
// safe for concurrent use.
type Preprocessor struct {
	cfg  Config
	stop map[string]struct{}
	log  *logger.Logger
}

// Option customizes a Preprocessor
type Option func(*Preprocessor)

// WithLogger overrides the component logger
func WithLogger(l *logger.Logger) Option {
	return func(p *Preprocessor) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates cfg and returns a Preprocessor holding a private copy of it.
// Stopwords are normalized with the same repair/accent/case steps as the text.
func New(cfg Config, opts ...Option) (*Preprocessor, error) {
	if err := validate.Struct(cfg, perr.ErrorCodeInvalidConfig); err != nil {
		return nil, perr.WithOp(err, "preprocess.New")
	}

	p := &Preprocessor{
		cfg: cfg.clone(),
		log: logger.Named("preprocess"),
	}
	for _, o := range opts {
		o(p)
	}

	p.stop = make(map[string]struct{}, len(cfg.Stopwords))
	for _, w := range cfg.Stopwords {
		toks := normalize.Tokenize(p.normalize(w))
		if len(toks) != 1 || toks[0].Core == "" {
			p.log.Warn().Str("stopword", w).Msg("stopword is not a single word, ignored")
			continue
		}
		p.stop[toks[0].Core] = struct{}{}
	}

	p.log.Debug().
		Bool("lowercase", cfg.Lowercase).
		Bool("strip_accents", cfg.StripAccents).
		Bool("remove_stopwords", cfg.RemoveStopwords).
		Int("stopwords", len(p.stop)).
		Int("min_token_length", cfg.MinTokenLength).
		Msg("preprocessor configured")

	return p, nil
}

// Config returns a copy of the active configuration
func (p *Preprocessor) Config() Config { return p.cfg.clone() }

// normalize runs the character level steps
func (p *Preprocessor) normalize(s string) string {
	s = normalize.Repair(s)
	if p.cfg.StripAccents {
		s = normalize.StripAccents(s)
	}
	if p.cfg.Lowercase {
		s = normalize.Lower(s)
		if p.cfg.StripAccents {
			// lowering can reintroduce combining marks (U+0130)
			s = normalize.StripAccents(s)
		}
	}
	return s
}

// keep reports whether a token survives the stopword and length filters
func (p *Preprocessor) keep(t normalize.Token) bool {
	if p.cfg.RemoveStopwords {
		if _, ok := p.stop[t.Core]; ok {
			return false
		}
	}
	return p.cfg.MinTokenLength == 0 || t.Len() >= p.cfg.MinTokenLength
}

func (p *Preprocessor) tokens(text string) []normalize.Token {
	toks := normalize.Tokenize(p.normalize(text))
	out := toks[:0]
	for _, t := range toks {
		if p.keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Normalize returns the processed form of text
func (p *Preprocessor) Normalize(text string) string {
	if text == "" {
		return ""
	}
	return normalize.Join(p.tokens(text))
}

// Tokens returns the surviving tokens of text, before they are rejoined
func (p *Preprocessor) Tokens(text string) []string {
	toks := p.tokens(text)
	if len(toks) == 0 {
		return nil
	}
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

// Process returns a copy of r with Processed set; r.Text is left as is
func (p *Preprocessor) Process(r record.Record) record.Record {
	return r.WithProcessed(p.Normalize(r.Text))
}

// ProcessBatch processes recs in parallel; out[i] corresponds to recs[i]
func (p *Preprocessor) ProcessBatch(recs []record.Record) []record.Record {
	if len(recs) == 0 {
		return []record.Record{}
	}
	out := make([]record.Record, len(recs))

	limit := p.cfg.Workers
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	if limit == 1 || len(recs) == 1 {
		for i, r := range recs {
			out[i] = p.Process(r)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range recs {
		g.Go(func() error {
			out[i] = p.Process(recs[i])
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	p.log.Debug().Int("records", len(recs)).Int("workers", limit).Msg("batch processed")
	return out
}
