package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/drakos74/microbe-cv/infra/config"
	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/pipeline"
	"github.com/drakos74/microbe-cv/internal/roc"
	"github.com/drakos74/microbe-cv/internal/storage"
	"github.com/drakos74/microbe-cv/internal/storage/bolt"
	jsonstore "github.com/drakos74/microbe-cv/internal/storage/file/json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	app         = "cv"
	reportShard = "reports"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	var (
		configPath = flag.String("config", "", "config file (.json or .yaml), defaults to infra/config/cv")
		features   = flag.String("features", "", "feature matrix json file")
		labels     = flag.String("labels", "", "sample labels json file")
		baseline   = flag.String("baseline", "", "optional baseline scores json file")
		vFeatures  = flag.String("validate-features", "", "optional external cohort feature matrix")
		vLabels    = flag.String("validate-labels", "", "optional external cohort labels")
		samples    = flag.Int("synthetic", 0, "run on a synthetic cohort of the given size instead of the input files")
		store      = flag.String("store", "void", "report storage: json, bolt or void")
		port       = flag.Int("serve", 0, "serve the reports and metrics on the given port, until interrupted")
		debug      = flag.Bool("debug", false, "enable debug logs")
	)
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}

	s := defaultSettings()
	if *configPath != "" {
		if err := config.Load(*configPath, &s); err != nil {
			log.Fatal().Err(err).Msg("could not load config")
		}
	} else {
		config.MustLoad(app, &s)
	}
	if err := override(&s, os.Getenv); err != nil {
		log.Fatal().Err(err).Msg("invalid environment")
	}

	var c *cohort
	var err error
	if *samples > 0 {
		c, err = synthetic(*samples, 50, s.CV.Seed)
	} else {
		c, err = load(*features, *labels, *baseline, s.Positive)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("could not load cohort")
	}

	shard, closer, err := persistence(*store)
	if err != nil {
		log.Fatal().Err(err).Str("store", *store).Msg("could not create storage")
	}
	defer closer()
	p, err := shard(reportShard)
	if err != nil {
		log.Fatal().Err(err).Str("store", *store).Msg("could not open storage")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rr := newReports(p)
	done := make(chan struct{})
	if *port > 0 {
		go func() {
			defer close(done)
			if err := newServer(*port, rr).Run(ctx); err != nil {
				log.Error().Err(err).Int("port", *port).Msg("server stopped")
			}
		}()
	} else {
		close(done)
	}

	report, err := pipeline.Run(ctx, s.Config, c.matrix, c.labels, c.baseline)
	if err != nil {
		log.Fatal().Err(err).Msg("cross validation failed")
	}
	if err := pipeline.Save(p, report); err != nil {
		log.Error().Err(err).Str("run", report.RunID).Msg("could not store report")
	}
	rr.set(report)

	summary := map[string]interface{}{
		"run":     report.RunID,
		"auc":     cvmath.Format(report.ROC.AUC),
		"best":    operatingPoint(report.ROC.Best()),
		"partial": report.Partial,
		"missing": report.Missing,
		"top":     report.Top,
	}
	if report.Comparison != nil {
		summary["baseline"] = cvmath.Format(report.Comparison.Baseline.AUC)
	}

	if *vFeatures != "" {
		external, err := load(*vFeatures, *vLabels, "", s.Positive)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load external cohort")
		}
		trained, err := pipeline.Train(s.Config, c.matrix, c.labels)
		if err != nil {
			log.Fatal().Err(err).Msg("could not train final model")
		}
		curve, err := trained.Evaluate(external.matrix, external.labels)
		if err != nil {
			log.Fatal().Err(err).Msg("could not evaluate external cohort")
		}
		summary["external"] = cvmath.Format(curve.AUC)
	}

	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("could not encode summary")
	}
	fmt.Println(string(b))

	<-done
}

func operatingPoint(p roc.Point) map[string]string {
	return map[string]string{
		"threshold":   cvmath.Format(p.Threshold),
		"sensitivity": cvmath.Format(p.Sensitivity),
		"specificity": cvmath.Format(p.Specificity),
	}
}

// persistence returns the storage shards of the given kind and the func releasing them.
func persistence(kind string) (storage.Shard, func(), error) {
	switch kind {
	case "json":
		return jsonstore.BlobShard(app), func() {}, nil
	case "bolt":
		stores := make([]*bolt.Store, 0)
		shard := func(name string) (storage.Persistence, error) {
			s, err := bolt.New(filepath.Join(storage.DefaultDir, name), app)
			if err != nil {
				return nil, err
			}
			stores = append(stores, s)
			return s, nil
		}
		return shard, func() {
			for _, s := range stores {
				if err := s.Close(); err != nil {
					log.Error().Err(err).Msg("could not close storage")
				}
			}
		}, nil
	case "void", "":
		return storage.VoidShard(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage '%s'", kind)
}
