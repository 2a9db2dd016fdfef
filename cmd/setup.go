package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/config"
	"github.com/nikogura/dfx-scorer/pkg/llm"
	"github.com/nikogura/dfx-scorer/pkg/metrics"
	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/refine"
	"github.com/nikogura/dfx-scorer/pkg/report"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/store"
)

// Output formats.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func checkFormat(format string) (err error) {
	switch format {
	case formatText, formatJSON, formatMarkdown:
	default:
		err = errors.Errorf("unsupported format %q (use text, json or markdown)", format)
	}
	return err
}

// setup loads configuration and builds an advisor. Offline disables the text generator.
func setup(ctx context.Context, offline bool) (cfg config.Config, adv *advisor.Advisor, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, adv, err
	}

	var registry *rules.Registry
	registry, err = rules.LoadRegistry(cfg.RulesFile)
	if err != nil {
		err = errors.Wrap(err, "failed to load rules")
		return cfg, adv, err
	}

	var generator llm.TextGenerator
	generator, err = llm.NewTextGenerator(ctx, cfg.Generator(offline))
	if err != nil {
		err = errors.Wrap(err, "failed to create text generator")
		return cfg, adv, err
	}

	refiner := refine.NewRefiner(generator,
		refine.WithTimeout(cfg.RefineTimeout),
		refine.WithLogger(getLogger()))

	adv = advisor.New(registry, refiner,
		advisor.WithLogger(getLogger()),
		advisor.WithRecommendOptions(
			recommend.WithConcernThreshold(cfg.ConcernThreshold),
			recommend.WithLimit(cfg.MaxRecommendations),
		))

	getLogger().Debug("advisor ready",
		zap.String("provider", string(cfg.Generator(offline).Provider)),
		zap.String("rules_file", cfg.RulesFile),
		zap.Strings("aspects", aspectNames(registry.Aspects())))

	return cfg, adv, err
}

func aspectNames(aspects []rules.Aspect) (names []string) {
	for _, aspect := range aspects {
		names = append(names, string(aspect))
	}
	return names
}

// loadRecord loads a metrics record and logs keys the aspect's rules ignore.
func loadRecord(ctx context.Context, adv *advisor.Advisor, input string, aspect rules.Aspect) (record metrics.Record, cov metrics.Coverage, err error) {
	record, err = metrics.LoadWithContext(ctx, input)
	if err != nil {
		return record, cov, err
	}

	var set rules.RuleSet
	set, err = adv.Registry().RuleSet(aspect)
	if err != nil {
		return record, cov, err
	}

	cov = metrics.Check(record.Metrics, set)
	if len(cov.Unknown) > 0 {
		getLogger().Warn("ignoring metrics not used by this aspect",
			zap.String("source", record.Source),
			zap.String("aspect", string(aspect)),
			zap.Strings("keys", cov.Unknown))
	}
	if len(cov.Missing) > 0 {
		getLogger().Info("metrics not reported, scored as zero",
			zap.String("source", record.Source),
			zap.Strings("keys", cov.Missing))
	}

	return record, cov, err
}

// designName picks a display name for a record.
func designName(record metrics.Record) (name string) {
	name = record.Design
	if name == "" {
		base := filepath.Base(record.Source)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return name
}

func openStore(ctx context.Context, cfg config.Config) (st *store.Store, err error) {
	st, err = store.Open(ctx, cfg.StorePath)
	if err != nil {
		err = errors.Wrap(err, "failed to open history store")
	}
	return st, err
}

// saveIteration records a report under a project and stamps the report with its iteration.
func saveIteration(ctx context.Context, st *store.Store, project string, rep *report.Report, record metrics.Record) (err error) {
	rep.Project = project

	var data []byte
	data, err = rep.JSON()
	if err != nil {
		return err
	}

	it := &store.Iteration{
		Project:   project,
		Aspect:    rep.Evaluation.Aspect,
		Category:  rep.Evaluation.Category,
		Score:     rep.Evaluation.Score,
		Qualifier: rep.Evaluation.Qualifier,
		Prompt:    rep.Prompt,
		Metrics:   record.Metrics,
		Report:    data,
	}
	if rep.Refined != nil {
		it.RefinedPrompt = rep.Refined.Text
	}

	err = st.Save(ctx, it)
	if err != nil {
		return err
	}

	rep.Iteration = it.Number
	getLogger().Debug("saved iteration",
		zap.String("project", project),
		zap.Int("iteration", it.Number),
		zap.String("id", it.ID))

	return err
}
