package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/catalog"
	"github.com/themobileprof/symptomcheck/internal/classifier"
	"github.com/themobileprof/symptomcheck/internal/config"
	"github.com/themobileprof/symptomcheck/internal/db"
	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/emergency"
	"github.com/themobileprof/symptomcheck/internal/enhancer"
	"github.com/themobileprof/symptomcheck/internal/heuristics"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
	"github.com/themobileprof/symptomcheck/internal/lexicon"
	"github.com/themobileprof/symptomcheck/internal/symptoms"
)

// App holds the wired service graph. Everything in it is read-only after
// New returns and is shared by all transports.
type App struct {
	Config    *config.Config
	Lexicon   *lexicon.Lexicon
	Knowledge *knowledge.Base
	Catalog   *catalog.Cached
	Model     *classifier.Model
	Extractor *symptoms.Extractor
	Enhancer  enhancer.Enhancer
	Analyzer  *analyzer.Analyzer

	database *db.DB
}

// Option overrides a component, mostly for tests and the CLI.
type Option func(*options)

type options struct {
	enhancer enhancer.Enhancer
	primary  catalog.Provider
}

// WithEnhancer replaces the configured enhancer.
func WithEnhancer(e enhancer.Enhancer) Option {
	return func(o *options) {
		o.enhancer = e
	}
}

// WithCatalog uses p as the primary catalog instead of opening the database.
func WithCatalog(p catalog.Provider) Option {
	return func(o *options) {
		o.primary = p
	}
}

// New builds the service graph from cfg. An unreachable catalog database is
// logged and the built-in corpus is used; a bad enhancer provider name is
// an error.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	lex, err := lexicon.Default()
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	kb, err := knowledge.Default()
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	a := &App{Config: cfg, Lexicon: lex, Knowledge: kb}

	primary := o.primary
	if primary == nil && cfg.Database.Driver != "" {
		database, err := db.New(db.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.URL})
		if err != nil {
			log.Printf("Warning: catalog database unavailable, using built-in corpus: %v", err)
		} else {
			a.database = database
			primary = database
			log.Printf("Catalog database connected (%s)", cfg.Database.Driver)
		}
	}

	builtin := catalog.NewBuiltin(kb)
	a.Catalog = catalog.NewCached(catalog.WithFallback(primary, builtin), cfg.Catalog.CacheTTL)

	a.Model, err = train(ctx, a.Catalog, kb)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	suff := a.Model.Sufficiency()
	if !suff.Sufficient {
		log.Printf("Warning: training corpus is small (%d samples, %d conditions); predictions will be weak", suff.Samples, suff.Labels)
	}
	log.Printf("Classifier trained: %d samples, %d conditions, %d terms", suff.Samples, suff.Labels, a.Model.VocabularySize())

	a.Enhancer = o.enhancer
	if a.Enhancer == nil {
		a.Enhancer, err = enhancer.New(EnhancerSettings(cfg))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("enhancer: %w", err)
		}
	}
	if d, ok := a.Enhancer.(enhancer.Disabled); ok {
		log.Printf("Enhancer disabled: %s", d.Reason)
	}

	a.Extractor = symptoms.NewExtractor(lex)
	a.Analyzer = analyzer.New(analyzer.Deps{
		Extractor:  a.Extractor,
		Gate:       emergency.NewGate(lex.CompoundRules()),
		Classifier: a.Model,
		Adjuster:   heuristics.NewAdjuster(heuristics.WithSeed(cfg.Heuristics.SeedProbability)),
		Enhancer:   a.Enhancer,
		Assembler:  diagnosis.NewAssembler(kb, a.Catalog, Thresholds(cfg)),
	}, analyzer.WithEnhanceThreshold(cfg.Enhancer.Threshold))

	return a, nil
}

// train fits the classifier on the catalog corpus, retrying on the built-in
// corpus when the catalog's samples cannot be trained on.
func train(ctx context.Context, p catalog.Provider, kb *knowledge.Base) (*classifier.Model, error) {
	samples, err := p.TrainingSamples(ctx)
	if err == nil {
		var model *classifier.Model
		model, err = classifier.Train(samples, classifier.DefaultOptions())
		if err == nil {
			return model, nil
		}
	}
	log.Printf("Warning: catalog corpus unusable, training on built-in corpus: %v", err)

	model, ferr := classifier.Train(kb.FallbackCorpus(), classifier.DefaultOptions())
	if ferr != nil {
		return nil, fmt.Errorf("train classifier: %w", errors.Join(err, ferr))
	}
	return model, nil
}

// Close releases the catalog database, if one was opened.
func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	return a.database.Close()
}

// Thresholds maps the configured presentation policy.
func Thresholds(cfg *config.Config) diagnosis.Thresholds {
	return diagnosis.Thresholds{
		Floor:  cfg.Thresholds.PresentationFloor,
		High:   cfg.Thresholds.HighConfidence,
		Medium: cfg.Thresholds.MediumConfidence,
	}
}

// EnhancerSettings maps the configured enhancer backend.
func EnhancerSettings(cfg *config.Config) enhancer.Settings {
	ec := enhancer.DefaultConfig()
	ec.Model = cfg.Enhancer.Model
	ec.Timeout = cfg.Enhancer.Timeout
	ec.MaxRetries = cfg.Enhancer.MaxRetries
	ec.Backoff = cfg.Enhancer.Backoff
	ec.RatePerMinute = cfg.Enhancer.RatePerMinute
	ec.CacheTTL = cfg.Enhancer.CacheTTL

	return enhancer.Settings{
		Enabled:  cfg.Enhancer.Enabled,
		Provider: cfg.Enhancer.Provider,
		Credentials: enhancer.Credentials{
			Gemini:   cfg.Credentials.Gemini,
			DeepSeek: cfg.Credentials.DeepSeek,
			OpenAI:   cfg.Credentials.OpenAI,
		},
		Config: ec,
	}
}
