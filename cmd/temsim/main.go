package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/ojholm/temsim/internal/aperture"
	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/config"
	"github.com/ojholm/temsim/internal/diag"
	"github.com/ojholm/temsim/internal/multislice"
	"github.com/ojholm/temsim/internal/scheduler"
	"github.com/ojholm/temsim/internal/specimen"
	"github.com/ojholm/temsim/internal/storage"
	"github.com/ojholm/temsim/internal/transform"
)

var (
	dataDir    string
	configFile string
	preset     string

	device    string
	precision string
	library   string
	lazy      bool

	energyKeV float64
	gridSize  int
	sampling  float64
	depth     float64
	sliceDz   float64
	probes    int
	phonons   int
	seed      int64

	probeIndex int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "temsim",
		Short: "multislice TEM simulation",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".temsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a multislice simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&device, "device", "", "compute device (cpu|gpu)")
	runCmd.Flags().StringVar(&precision, "precision", "", "numeric precision (float32|float64)")
	runCmd.Flags().StringVar(&library, "fft", "", "fft library (gonum|godsp|default)")
	runCmd.Flags().BoolVar(&lazy, "lazy", false, "defer execution until explicit compute")
	runCmd.Flags().Float64Var(&energyKeV, "energy", 0, "acceleration energy (keV)")
	runCmd.Flags().IntVar(&gridSize, "grid", 0, "grid size (pixels per side)")
	runCmd.Flags().Float64Var(&sampling, "sampling", 0, "real-space sampling (angstrom/pixel)")
	runCmd.Flags().Float64Var(&depth, "depth", 0, "specimen depth (angstrom)")
	runCmd.Flags().Float64Var(&sliceDz, "slice", 0, "target slice thickness (angstrom)")
	runCmd.Flags().IntVar(&probes, "probes", 0, "number of probe positions")
	runCmd.Flags().IntVar(&phonons, "phonons", 0, "number of frozen-phonon configurations")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for phonon sampling")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot exit intensity profile",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&probeIndex, "probe", 0, "probe position index")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export exit intensity to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().IntVar(&probeIndex, "probe", 0, "probe position index")

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "report compute and fft availability",
		RunE:  showBackends,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, backendsCmd, presetsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildConfig() (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, fmt.Errorf("--preset and --config are mutually exclusive")
	}
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", preset)
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if device != "" {
		cfg.Device = device
	}
	if precision != "" {
		cfg.Precision = precision
	}
	if library != "" {
		cfg.Library = library
	}
	if lazy {
		cfg.Lazy = true
	}
	if energyKeV > 0 {
		cfg.Sim.EnergyKeV = energyKeV
	}
	if gridSize > 0 {
		cfg.Sim.GridH, cfg.Sim.GridW = gridSize, gridSize
	}
	if sampling > 0 {
		cfg.Sim.SamplingX, cfg.Sim.SamplingY = sampling, sampling
	}
	if depth > 0 {
		cfg.Sim.Depth = depth
	}
	if sliceDz > 0 {
		cfg.Sim.SliceTarget = sliceDz
	}
	if probes > 0 {
		cfg.Sim.Probes = probes
	}
	if phonons > 0 {
		cfg.Sim.Phonons = phonons
	}
	if seed != 0 {
		cfg.Sim.Seed = seed
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	rec := &diag.Recorder{}
	sink := teeSink{rec, diag.Stderr()}
	cctx := cfg.Context()

	effort, _ := transform.ParseEffort(cfg.Planning.Effort)
	planning := transform.Planning{
		Effort:        effort,
		TimeBudget:    time.Duration(cfg.Planning.TimeLimitMS) * time.Millisecond,
		AllowFallback: cfg.Planning.AllowFallback,
	}
	tr, err := transform.New(cctx, planning, cfg.Sim.GridH, cfg.Sim.GridW, sink)
	if err != nil {
		return err
	}

	mask, err := aperture.BuildAntialias(cfg.Sim.GridH, cfg.Sim.GridW,
		cfg.Sim.SamplingX, cfg.Sim.SamplingY,
		cfg.Antialias.CutoffFraction, cfg.Antialias.TaperWidth, sink)
	if err != nil {
		return err
	}

	eng := multislice.NewEngine(tr, mask)
	eng.SetTilt(cfg.Sim.TiltX, cfg.Sim.TiltY)

	dz, err := multislice.UniformThicknesses(cfg.Sim.SliceTarget, cfg.Sim.Depth)
	if err != nil {
		return err
	}
	lattice := &specimen.Lattice{
		H: cfg.Sim.GridH, W: cfg.Sim.GridW,
		SamplingX: cfg.Sim.SamplingX, SamplingY: cfg.Sim.SamplingY,
		EnergyEV: cfg.Sim.EnergyKeV * 1e3,
		SpacingX: 2.0, SpacingY: 2.0,
		Peak: 40, Width: 0.35,
		Displacement: 0.08,
		Thicknesses:  dz,
		ProbeWidth:   1.0,
		Probes:       cfg.Sim.Probes,
	}

	spec := scheduler.Spec{
		Probes:     cfg.Sim.Probes,
		Phonons:    cfg.Sim.Phonons,
		Seed:       cfg.Sim.Seed,
		ChunkBytes: cfg.ChunkBytes(),
		Lazy:       cfg.Lazy,
	}

	start := time.Now()
	graph, err := scheduler.Schedule(context.Background(), spec, lattice, eng)
	if err != nil {
		return err
	}
	res, err := graph.Compute(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	var warnings []string
	for _, w := range rec.Warnings() {
		warnings = append(warnings, w.String())
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Timestamp: time.Now(),
		Device:    cctx.Device().String(),
		Precision: cctx.Precision().String(),
		Library:   tr.Provider(),
		EnergyKeV: cfg.Sim.EnergyKeV,
		GridH:     cfg.Sim.GridH,
		GridW:     cfg.Sim.GridW,
		Probes:    cfg.Sim.Probes,
		Phonons:   cfg.Sim.Phonons,
		Seed:      cfg.Sim.Seed,
		Slices:    len(dz),
		Elapsed:   elapsed.Seconds(),
		Warnings:  warnings,
	}
	id, err := store.Save(meta, res)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d probes x %d phonons, %d slices, %d chunks, %.2fs (%s, %s, fft=%s)\n",
		id, cfg.Sim.Probes, cfg.Sim.Phonons, len(dz), len(graph.Chunks()),
		elapsed.Seconds(), cctx.Device(), cctx.Precision(), tr.Provider())
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENERGY\tGRID\tPROBES\tPHONONS\tSLICES\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%.0fkV\t%dx%d\t%d\t%d\t%d\t%.2fs\n",
			r.ID, r.EnergyKeV, r.GridH, r.GridW, r.Probes, r.Phonons, r.Slices, r.Elapsed)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	in, h, w, err := store.LoadIntensity(args[0], probeIndex)
	if err != nil {
		return err
	}
	// Center-row line profile of the exit intensity.
	row := make([]float64, w)
	copy(row, in[(h/2)*w:(h/2)*w+w])

	fmt.Printf("exit intensity, run %s probe %d, center row\n", args[0], probeIndex)
	fmt.Println(asciigraph.Plot(row, asciigraph.Height(16), asciigraph.Width(72)))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	in, h, w, err := storage.New(dataDir).LoadIntensity(args[0], probeIndex)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(os.Stdout)
	rec := make([]string, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rec[x] = strconv.FormatFloat(in[y*w+x], 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func showBackends(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tAVAILABLE")
	for _, b := range []compute.Backend{compute.NewCPUBackend(), compute.NewGPUBackend()} {
		fmt.Fprintf(w, "device\t%s\t%v\n", b.Name(), b.Available())
	}
	for _, p := range transform.Candidates("default", 0) {
		fmt.Fprintf(w, "fft\t%s\t%v\n", p.Name(), p.Available())
	}
	return w.Flush()
}

// teeSink fans warnings out to several sinks.
type teeSink []diag.Sink

func (t teeSink) Warn(w diag.Warning) {
	for _, s := range t {
		s.Warn(w)
	}
}
