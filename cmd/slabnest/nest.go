package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/piwi3910/slabnest/internal/export"
	"github.com/piwi3910/slabnest/internal/gcode"
	"github.com/piwi3910/slabnest/internal/history"
	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
	"github.com/piwi3910/slabnest/internal/project"
)

type nestOptions struct {
	job       jobFlags
	pdf       string
	labels    string
	xlsx      string
	dxf       string
	gcode     string
	dialect   string
	saveJob   string
	noHistory bool
}

func newNestCmd(root *rootOptions) *cobra.Command {
	o := &nestOptions{}
	cmd := &cobra.Command{
		Use:   "nest [job.yaml]",
		Short: "Nest a job and print the per-sheet report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNest(cmd, root, o, args)
		},
	}

	o.job.register(cmd)
	f := cmd.Flags()
	f.StringVar(&o.pdf, "pdf", "", "Write a PDF report to this path")
	f.StringVar(&o.labels, "labels", "", "Write QR labels for every placed object to this path")
	f.StringVar(&o.xlsx, "xlsx", "", "Write an Excel report to this path")
	f.StringVar(&o.dxf, "dxf", "", "Write the nested sheets as DXF to this path")
	f.StringVar(&o.gcode, "gcode", "", "Write G-code toolpaths to this path, one file per sheet")
	f.StringVar(&o.dialect, "gcode-dialect", "",
		"G-code dialect: "+strings.Join(gcode.DialectNames(), ", ")+" (default from config)")
	f.StringVar(&o.saveJob, "save-job", "", "Save the assembled job as a YAML job file")
	f.BoolVar(&o.noHistory, "no-history", false, "Do not record the run in the history database")
	return cmd
}

func runNest(cmd *cobra.Command, root *rootOptions, o *nestOptions, args []string) error {
	log := root.component("cli")

	job, warnings, err := o.job.build(cmd, root.config, args)
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return err
	}

	if o.saveJob != "" {
		if err := project.SaveJob(o.saveJob, project.NewJobFile(jobName(args), job)); err != nil {
			return fmt.Errorf("saving job: %w", err)
		}
	}

	ctrlOpts := []nesting.Option{
		nesting.WithLogger(root.component("nesting")),
		nesting.OnProgress(func(ev nesting.ProgressEvent) {
			if !ev.Done {
				log.WithField("attempt", ev.Attempt).Debug("packing sheet")
			}
		}),
	}

	var scene *export.DXFScene
	if o.dxf != "" {
		if scene, err = export.NewDXFScene(); err != nil {
			return err
		}
		ctrlOpts = append(ctrlOpts, nesting.WithScene(scene))
	}

	if !o.noHistory {
		store, err := history.Open(project.HistoryPath(root.config))
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		log.WithField("path", store.Path()).Debug("recording job history")
		ctrlOpts = append(ctrlOpts, nesting.WithRecorder(store))
	}

	result, state, err := nesting.RunWithState(cmd.Context(), o.job.engine(root), job, ctrlOpts...)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result)

	if err := o.export(result, job, scene); err != nil {
		return err
	}
	if err := o.writeGCode(root, result); err != nil {
		return err
	}

	if len(args) == 1 {
		root.config.AddRecentJob(args[0])
		if err := project.SaveAppConfig(root.configPath, root.config); err != nil {
			log.WithError(err).Warn("failed to save config")
		}
	}

	if state.Err != nil {
		return fmt.Errorf("nesting stopped early: %w", state.Err)
	}
	return nil
}

func (o *nestOptions) export(result model.NestResult, job nesting.Job, scene *export.DXFScene) error {
	if o.pdf != "" {
		if err := export.ExportPDF(o.pdf, result, job.Objects, job.Params); err != nil {
			return fmt.Errorf("pdf export: %w", err)
		}
	}
	if o.labels != "" {
		if err := export.ExportLabels(o.labels, result); err != nil {
			return fmt.Errorf("label export: %w", err)
		}
	}
	if o.xlsx != "" {
		if err := export.ExportXLSX(o.xlsx, result); err != nil {
			return fmt.Errorf("xlsx export: %w", err)
		}
	}
	if scene != nil {
		if err := scene.Save(o.dxf); err != nil {
			return fmt.Errorf("dxf export: %w", err)
		}
	}
	return nil
}

func (o *nestOptions) writeGCode(root *rootOptions, result model.NestResult) error {
	if o.gcode == "" {
		return nil
	}
	settings := root.config.Cut
	if o.dialect != "" {
		settings.Dialect = o.dialect
	}
	gen, err := gcode.New(settings)
	if err != nil {
		return err
	}
	programs, err := gen.WriteFiles(o.gcode, result)
	if err != nil {
		return fmt.Errorf("gcode export: %w", err)
	}
	log := root.component("gcode")
	for _, p := range programs {
		log.WithFields(logrus.Fields{
			"sheet":      p.Sheet,
			"plunges":    p.Stats.Plunges,
			"cut_length": fmt.Sprintf("%.1f", p.Stats.CutLength),
		}).Infof("wrote %s", p.Path)
	}
	return nil
}

func printResult(w io.Writer, result model.NestResult) {
	fmt.Fprintf(w, "Job %s: %d sheet(s), %d placed, %d unplaced, %.1f%% utilization\n\n",
		result.JobID, len(result.Sheets), result.PlacedCount(), result.UnplacedCount(), result.TotalEfficiency())
	for _, line := range nesting.ReportLines(result.Summaries) {
		fmt.Fprintln(w, line)
	}
	if len(result.Unplaced) > 0 {
		fmt.Fprintln(w, "Unplaced:")
		for _, obj := range result.Unplaced {
			fmt.Fprintf(w, "  %s x%d (%.2f x %.2f)\n", obj.Label, obj.RemainingCopies, obj.Width, obj.Height)
		}
	}
}

func jobName(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "slabnest job"
}
