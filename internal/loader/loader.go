// Package loader turns a Source of raw entries into records with unique identifiers.
// Bad entries are skipped and reported in the Summary; only source level failures abort.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/record"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"
)

// Skipped describes one entry left out of the result
type Skipped struct {
	Ref    string
	ID     string // explicit identifier when one could be read
	Reason string
}

// Summary reports what a load did
type Summary struct {
	Source         string
	Total          int // entries read, good or bad
	Loaded         int
	Skipped        int
	SkippedEntries []Skipped
	Warnings       []string
}

// Err returns a MalformedRecord error listing the skipped entries, or nil
func (s Summary) Err() error {
	if s.Skipped == 0 {
		return nil
	}
	refs := make([]string, 0, min(len(s.SkippedEntries), maxListed))
	for _, sk := range s.SkippedEntries[:min(len(s.SkippedEntries), maxListed)] {
		ref := sk.Ref
		if sk.ID != "" {
			ref += " (id " + sk.ID + ")"
		}
		refs = append(refs, ref)
	}
	more := ""
	if s.Skipped > maxListed {
		more = fmt.Sprintf(" and %d more", s.Skipped-maxListed)
	}
	return perr.WithOp(
		perr.Malformedf("%s: %d of %d entries skipped: %s%s", s.Source, s.Skipped, s.Total, strings.Join(refs, ", "), more),
		"loader.Load",
	)
}

const maxListed = 10

// Result holds the loaded records in source order
type Result struct {
	Records []record.Record
	Summary Summary
}

// Loader reads sources into records
type Loader struct {
	strategy IDStrategy
	prefix   string
	log      *logger.Logger
}

// Option customizes a Loader
type Option func(*Loader)

// WithIDStrategy selects how missing identifiers are assigned
func WithIDStrategy(s IDStrategy) Option { return func(l *Loader) { l.strategy = s } }

// WithIDPrefix sets the prefix of sequential identifiers
func WithIDPrefix(p string) Option { return func(l *Loader) { l.prefix = p } }

// WithLogger overrides the component logger
func WithLogger(lg *logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}

// New returns a Loader; unknown strategies fail with InvalidConfig
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		strategy: IDSequential,
		prefix:   DefaultIDPrefix,
		log:      logger.Named("loader"),
	}
	for _, o := range opts {
		o(l)
	}
	switch l.strategy {
	case IDSequential, IDContentHash:
	default:
		return nil, perr.WithField(perr.InvalidConfigf("unknown id strategy %q", l.strategy), "id_strategy")
	}
	return l, nil
}

// OptionsFromEnv reads ID_STRATEGY and ID_PREFIX under c's prefix
func OptionsFromEnv(c config.Conf) []Option {
	opts := []Option{
		WithIDStrategy(IDStrategy(strings.ToLower(
			c.MayEnum("ID_STRATEGY", string(IDSequential), string(IDSequential), string(IDContentHash)),
		))),
	}
	if c.Has("ID_PREFIX") {
		opts = append(opts, WithIDPrefix(c.MayString("ID_PREFIX", DefaultIDPrefix)))
	}
	return opts
}

// Load reads every entry of src in order. The returned error is non-nil only when
// the source cannot be opened or read; skipped entries are in Result.Summary.
func (l *Loader) Load(ctx context.Context, src Source) (Result, error) {
	name := src.Name()
	log := logger.From(logger.WithRun(ctx, "", name), l.log)

	rd, err := src.Open(ctx)
	if err != nil {
		return Result{}, perr.WithOp(err, "loader.Load")
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing source")
		}
	}()

	res := Result{Records: []record.Record{}, Summary: Summary{Source: name}}
	seen := make(map[string]struct{})
	sum := &res.Summary

	for pos := 0; ; pos++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		raw, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if perr.CodeOf(err).Recoverable() {
				sum.Total++
				l.skip(log, sum, Skipped{Ref: refOf(err, name, pos), Reason: reasonOf(err)})
				continue
			}
			return Result{}, perr.WithOp(perr.Wrap(err, perr.CodeOf(err), "reading "+name), "loader.Load")
		}
		sum.Total++

		rec, sk, ok := l.build(raw, pos, name)
		if !ok {
			l.skip(log, sum, sk)
			continue
		}

		if _, dup := seen[rec.ID]; dup {
			orig := rec.ID
			rec.ID = nextFree(seen, orig)
			msg := fmt.Sprintf("%s: duplicate identifier %q reassigned to %q", raw.Ref, orig, rec.ID)
			sum.Warnings = append(sum.Warnings, msg)
			log.Warn().Str("ref", raw.Ref).Str("id", orig).Str("new_id", rec.ID).Msg("duplicate identifier reassigned")
		}
		seen[rec.ID] = struct{}{}
		res.Records = append(res.Records, rec)
		sum.Loaded++
	}

	log.Info().
		Int("total", sum.Total).
		Int("loaded", sum.Loaded).
		Int("skipped", sum.Skipped).
		Int("warnings", len(sum.Warnings)).
		Msg("source loaded")

	return res, nil
}

// build validates one entry; ok=false carries the skip reason
func (l *Loader) build(raw RawEntry, pos int, name string) (record.Record, Skipped, bool) {
	if raw.Ref == "" {
		raw.Ref = fmt.Sprintf("%s[%d]", name, pos)
	}
	id, hasID, err := explicitID(raw.ID)
	if err != nil {
		return record.Record{}, Skipped{Ref: raw.Ref, Reason: reasonOf(err)}, false
	}
	sk := Skipped{Ref: raw.Ref, ID: id}

	var text string
	switch t := raw.Text.(type) {
	case nil:
		sk.Reason = "missing text"
		return record.Record{}, sk, false
	case string:
		text = t
	default:
		sk.Reason = fmt.Sprintf("text must be a string, got %T", raw.Text)
		return record.Record{}, sk, false
	}

	md, err := record.MetadataFrom(raw.Metadata)
	if err != nil {
		sk.Reason = reasonOf(err)
		if e, ok := perr.As(err); ok && e.Field() != "" {
			sk.Reason = fmt.Sprintf("metadata %q: %s", e.Field(), e.Message())
		}
		return record.Record{}, sk, false
	}

	if !hasID {
		switch l.strategy {
		case IDContentHash:
			id = contentID(text, md)
		default:
			id = fmt.Sprintf("%s%d", l.prefix, pos)
		}
	}
	return record.Record{ID: id, Text: text, Metadata: md}, sk, true
}

func (l *Loader) skip(log *logger.Logger, sum *Summary, sk Skipped) {
	sum.Skipped++
	sum.SkippedEntries = append(sum.SkippedEntries, sk)
	log.Warn().Str("ref", sk.Ref).Str("id", sk.ID).Str("reason", sk.Reason).Msg("entry skipped")
}

// nextFree returns the first "<id>#<n>" (n >= 2) not yet taken
func nextFree(seen map[string]struct{}, id string) string {
	for n := 2; ; n++ {
		c := fmt.Sprintf("%s#%d", id, n)
		if _, ok := seen[c]; !ok {
			return c
		}
	}
}

// refOf prefers the locator a reader attached to a malformed error
func refOf(err error, name string, pos int) string {
	if e, ok := perr.As(err); ok && e.Field() != "" {
		return e.Field()
	}
	return fmt.Sprintf("%s[%d]", name, pos)
}

func reasonOf(err error) string {
	if e, ok := perr.As(err); ok {
		return e.Message()
	}
	return err.Error()
}
