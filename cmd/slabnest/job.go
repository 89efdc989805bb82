package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/slabnest/internal/engine"
	"github.com/piwi3910/slabnest/internal/importer"
	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
	"github.com/piwi3910/slabnest/internal/project"
)

// jobFlags are the flags shared by the commands that build a job.
type jobFlags struct {
	objects     []string
	copies      int
	width       float64
	height      float64
	singleSheet bool
	criterion   string
	itemToItem  float64
	itemToSheet float64
	variants    int
	timeout     float64
	seed        int64
}

func (j *jobFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&j.objects, "objects", nil, "CSV, Excel or DXF files with objects to nest (repeatable)")
	f.IntVar(&j.copies, "copies", 1, "Copies of every shape imported from a DXF file")
	f.Float64Var(&j.width, "width", 0, "Sheet width (default from job file or config)")
	f.Float64Var(&j.height, "height", 0, "Sheet height (default from job file or config)")
	f.BoolVar(&j.singleSheet, "single-sheet", false, "Nest onto one sheet only")
	f.StringVar(&j.criterion, "criterion", "", "Global criterion used to rank layouts")
	f.Float64Var(&j.itemToItem, "item-distance", 0, "Minimum distance between objects")
	f.Float64Var(&j.itemToSheet, "sheet-distance", 0, "Minimum distance to the sheet edge")
	f.IntVar(&j.variants, "variants", 0, "Number of layout variants tried per sheet")
	f.Float64Var(&j.timeout, "timeout", 0, "Time budget per sheet in seconds, 0 for unlimited")
	f.Int64Var(&j.seed, "seed", 1, "Seed for the variant shuffles")
}

// build assembles the job from an optional job file argument, the --objects
// files and the override flags. Import warnings are returned with the job.
func (j *jobFlags) build(cmd *cobra.Command, cfg model.AppConfig, args []string) (nesting.Job, []string, error) {
	job := nesting.Job{Sheet: cfg.DefaultSheet(), Params: cfg.DefaultParameters}
	var warnings []string

	if len(args) == 1 {
		jf, err := project.LoadJob(args[0], cfg)
		if err != nil {
			return job, nil, err
		}
		job, warnings, err = jf.ToJob(filepath.Dir(args[0]), cfg)
		if err != nil {
			return job, warnings, fmt.Errorf("%s: %w", args[0], err)
		}
	}

	var importErrs []string
	for _, path := range j.objects {
		res := importer.ImportFile(path, j.copies)
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", path, w))
		}
		for _, e := range res.Errors {
			importErrs = append(importErrs, fmt.Sprintf("%s: %s", path, e))
		}
		job.Objects = append(job.Objects, res.Objects...)
	}
	if len(importErrs) > 0 {
		return job, warnings, errors.New(strings.Join(importErrs, "; "))
	}

	if err := j.apply(cmd, &job); err != nil {
		return job, warnings, err
	}
	if len(job.Objects) == 0 {
		return job, warnings, errors.New("no objects to nest: pass a job file or --objects")
	}
	return job, warnings, nil
}

// apply overrides job values with the flags given on the command line.
func (j *jobFlags) apply(cmd *cobra.Command, job *nesting.Job) error {
	f := cmd.Flags()
	if f.Changed("width") {
		job.Sheet.Width = j.width
	}
	if f.Changed("height") {
		job.Sheet.Height = j.height
	}
	if j.singleSheet {
		job.Sheet.MultiSheet = false
	}
	if f.Changed("criterion") {
		c, err := model.ParseGlobalCriterion(j.criterion)
		if err != nil {
			return err
		}
		job.Params.Criterion = c
	}
	if f.Changed("item-distance") {
		job.Params.ItemToItem = j.itemToItem
	}
	if f.Changed("sheet-distance") {
		job.Params.ItemToSheet = j.itemToSheet
	}
	if f.Changed("variants") {
		job.Params.LimitVariants = j.variants
	}
	if f.Changed("timeout") {
		job.Params.TimeOut = j.timeout
	}
	return nil
}

func (j *jobFlags) engine(opts *rootOptions) *engine.Engine {
	return engine.New(
		engine.WithFreeRotationStep(opts.config.FreeRotationStep),
		engine.WithSeed(j.seed),
		engine.WithLogger(opts.component("engine")),
	)
}
