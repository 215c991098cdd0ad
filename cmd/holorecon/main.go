package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/alignment"
	"holorecon/pkg/batch"
	"holorecon/pkg/config"
	"holorecon/pkg/despike"
	"holorecon/pkg/diag"
	"holorecon/pkg/holography"
	"holorecon/pkg/imageio"
	"holorecon/pkg/selector"
)

func main() {
	// Parse command line arguments
	mode := flag.String("mode", "reconstruct", "One of reconstruct, align, despike, batch")
	configPath := flag.String("config", "holorecon.yaml", "Configuration file (defaults are used if missing)")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	objectPath := flag.String("object", "", "Object hologram, or the image to clean in despike mode")
	referencePath := flag.String("reference", "", "Reference hologram (optional)")
	targetPath := flag.String("target", "", "Image to align onto -object in align mode")
	inputDir := flag.String("input", "", "Directory of object holograms for batch mode")
	specPath := flag.String("spec", "", "Sideband file to reuse; skips the interactive selection")
	saveSpec := flag.String("save-spec", "", "Write the resolved sideband to this file")
	outputDir := flag.String("output", "holorecon_output", "Directory for result images")
	method := flag.String("method", "", "Alignment method, overrides the configuration")
	manualXY := flag.String("manual", "", "Manual drift as 'dx,dy'")
	numWorkers := flag.Int("workers", 0, "Number of parallel workers in batch mode (0 uses the configuration)")
	verbose := flag.Bool("verbose", false, "Print debug diagnostics")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *method != "" {
		cfg.Alignment.Method = *method
	}
	if *numWorkers > 0 {
		cfg.Processing.NumWorkers = *numWorkers
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := "info"
	if cfg.Output.Verbose {
		level = "debug"
	}
	sink, err := diag.New(os.Stderr, cfg.Output.LogFormat, level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	prompt := selector.NewPrompt(os.Stdin, os.Stdout, cfg.Processing.SelectionTimeout)
	if cfg.Output.SavePreviews {
		prompt = prompt.WithPreview(filepath.Join(*outputDir, "selection"))
	}

	fmt.Println("================================")
	fmt.Println("OFF-AXIS ELECTRON HOLOGRAPHY RECONSTRUCTION")
	fmt.Println("================================")

	app := &app{
		cfg:    cfg,
		sink:   sink,
		prompt: prompt,
		output: *outputDir,
	}

	ctx := context.Background()
	startTime := time.Now()

	switch *mode {
	case "reconstruct":
		err = app.reconstruct(ctx, *objectPath, *referencePath, *specPath, *saveSpec)
	case "align":
		err = app.align(ctx, *objectPath, *targetPath, *manualXY)
	case "despike":
		err = app.despike(*objectPath)
	case "batch":
		err = app.batch(ctx, *inputDir, *referencePath, *specPath)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}

	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Results saved to: %s\n", *outputDir)
}

type app struct {
	cfg    *config.Config
	sink   diag.Sink
	prompt *selector.Prompt
	output string
}

func (a *app) loadHologram(path string) (*mat.Dense, error) {
	if path == "" {
		return nil, errors.New("missing input image")
	}
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	if a.cfg.Despike.Enabled {
		res, err := despike.Despike(img, a.cfg.DespikeParams())
		if err != nil {
			return nil, err
		}
		fmt.Printf("Despiked %s: %d pixels replaced\n", filepath.Base(path), res.Count)
	}
	return img, nil
}

func (a *app) reconstruct(ctx context.Context, objectPath, referencePath, specPath, saveSpec string) error {
	object, err := a.loadHologram(objectPath)
	if err != nil {
		return err
	}
	var reference mat.Matrix
	if referencePath != "" {
		ref, err := a.loadHologram(referencePath)
		if err != nil {
			return err
		}
		reference = ref
	}

	var spec *models.SidebandSpec
	if specPath != "" {
		if spec, err = config.LoadSpec(specPath); err != nil {
			return err
		}
		fmt.Printf("Reusing sideband from %s\n", specPath)
	} else {
		fmt.Println("Select the sideband on the spectrum preview")
	}

	pair := holography.NewPairReconstructor(a.cfg.WaveParams(0), a.sink)
	res, err := pair.Reconstruct(ctx, object, reference, spec, a.prompt)
	if err != nil {
		return err
	}

	fmt.Printf("Sideband at (%d, %d), size %d\n", res.Spec.Center.Row, res.Spec.Center.Col, res.Spec.Size)
	if res.NonFinite > 0 {
		fmt.Printf("Warning: %d non-finite values from the reference division\n", res.NonFinite)
	}

	if saveSpec != "" {
		if err := config.SaveSpec(res.Spec, saveSpec); err != nil {
			return err
		}
		fmt.Printf("Sideband saved to %s\n", saveSpec)
	}

	name := strings.TrimSuffix(filepath.Base(objectPath), filepath.Ext(objectPath))
	return batch.SaveOutcome(a.output, batch.Outcome{Name: name, Result: res})
}

func (a *app) align(ctx context.Context, referencePath, targetPath, manualXY string) error {
	reference, err := a.loadHologram(referencePath)
	if err != nil {
		return err
	}
	target, err := a.loadHologram(targetPath)
	if err != nil {
		return err
	}

	manual, err := parseDrift(manualXY)
	if err != nil {
		return err
	}
	opts, err := a.cfg.AlignmentOptions(manual)
	if err != nil {
		return err
	}

	aligner := alignment.NewAligner(a.prompt, a.sink)
	res, err := aligner.Align(ctx, reference, target, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Drift (%s): dx = %.2f, dy = %.2f\n", opts.Method.Strategy(), res.Drift.DX, res.Drift.DY)
	name := strings.TrimSuffix(filepath.Base(targetPath), filepath.Ext(targetPath))
	return imageio.Save(filepath.Join(a.output, name+"_aligned.png"), res.Aligned)
}

func (a *app) despike(path string) error {
	if path == "" {
		return errors.New("missing input image")
	}
	img, err := imageio.Load(path)
	if err != nil {
		return err
	}
	cleaned, res, err := despike.Clean(img, a.cfg.DespikeParams())
	if err != nil {
		return err
	}
	fmt.Printf("The number of pixels changed = %d\n", res.Count)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return imageio.Save(filepath.Join(a.output, name+"_despiked.png"), cleaned)
}

func (a *app) batch(ctx context.Context, inputDir, referencePath, specPath string) error {
	if inputDir == "" || specPath == "" {
		return errors.New("batch mode needs -input and -spec")
	}
	spec, err := config.LoadSpec(specPath)
	if err != nil {
		return err
	}
	paths, err := batch.ListImages(inputDir)
	if err != nil {
		return err
	}
	pairs, err := batch.LoadPairs(paths, referencePath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d holograms from %s\n", len(pairs), inputDir)

	params := batch.Params{NumWorkers: a.cfg.Processing.NumWorkers}
	if a.cfg.Despike.Enabled {
		p := a.cfg.DespikeParams()
		params.Despike = &p
	}
	runner := batch.NewRunner(holography.NewPairReconstructor(a.cfg.WaveParams(0), a.sink), params, a.sink)

	failed := 0
	for _, o := range runner.Run(ctx, pairs, *spec) {
		if o.Err != nil {
			failed++
			fmt.Printf("- %s: FAILED (%v)\n", o.Name, o.Err)
			continue
		}
		if err := batch.SaveOutcome(a.output, o); err != nil {
			fmt.Printf("Warning: Failed to save %s: %v\n", o.Name, err)
		}
	}
	fmt.Printf("Reconstructed %d of %d pairs with %d workers\n", len(pairs)-failed, len(pairs), a.cfg.Processing.NumWorkers)
	return nil
}

// parseDrift reads "dx,dy"; an empty string means no manual drift.
func parseDrift(s string) (*models.DriftVector, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: manual drift %q must be 'dx,dy'", models.ErrConfiguration, s)
	}
	dx, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: manual dx: %v", models.ErrConfiguration, err)
	}
	dy, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: manual dy: %v", models.ErrConfiguration, err)
	}
	return &models.DriftVector{DX: dx, DY: dy}, nil
}
