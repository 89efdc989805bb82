package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/slabnest/internal/importer"
	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
)

// JobFileVersion is the job file format written by SaveJob.
const JobFileVersion = 1

// JobFile is the YAML description of a nesting job. Objects can be listed
// inline or imported from CSV, Excel and DXF sources.
type JobFile struct {
	Version int              `yaml:"version"`
	Name    string           `yaml:"name,omitempty"`
	Sheet   SheetSpec        `yaml:"sheet"`
	Params  model.Parameters `yaml:"params"`
	Objects []ObjectSpec     `yaml:"objects,omitempty"`
	Sources []SourceSpec     `yaml:"sources,omitempty"`
}

// SheetSpec describes the sheet either by size or by a DXF boundary file.
type SheetSpec struct {
	Label      string        `yaml:"label,omitempty"`
	Width      float64       `yaml:"width,omitempty"`
	Height     float64       `yaml:"height,omitempty"`
	Origin     model.Point2D `yaml:"origin,omitempty"`
	MultiSheet *bool         `yaml:"multi_sheet,omitempty"` // Defaults to true
	Boundary   string        `yaml:"boundary,omitempty"`    // DXF file, relative to the job file
}

// ObjectSpec is one inline object. Width and height are taken from the
// outline when one is given.
type ObjectSpec struct {
	Label       string             `yaml:"label"`
	Width       float64            `yaml:"width,omitempty"`
	Height      float64            `yaml:"height,omitempty"`
	Outline     model.Outline      `yaml:"outline,omitempty"`
	Copies      int                `yaml:"copies"`
	Priority    *int               `yaml:"priority,omitempty"`
	Orientation *model.Orientation `yaml:"orientation,omitempty"` // Defaults to free
	Criterion   model.Criterion    `yaml:"criterion,omitempty"`
}

// SourceSpec imports objects from a file. Copies applies to DXF shapes.
type SourceSpec struct {
	Path   string `yaml:"path"`
	Copies int    `yaml:"copies,omitempty"`
}

// NewJobFile describes an in-memory job so it can be saved.
func NewJobFile(name string, job nesting.Job) JobFile {
	multi := job.Sheet.MultiSheet
	jf := JobFile{
		Version: JobFileVersion,
		Name:    name,
		Sheet: SheetSpec{
			Label:      job.Sheet.Label,
			Width:      job.Sheet.Width,
			Height:     job.Sheet.Height,
			Origin:     job.Sheet.Origin,
			MultiSheet: &multi,
		},
		Params: job.Params,
	}
	for _, o := range job.Objects {
		prio := o.Priority
		orient := o.Orientation
		spec := ObjectSpec{
			Label:       o.Label,
			Width:       o.Width,
			Height:      o.Height,
			Copies:      o.Copies,
			Priority:    &prio,
			Orientation: &orient,
			Criterion:   o.Criterion,
		}
		if !isRect(o) {
			spec.Outline = o.Outline
		}
		jf.Objects = append(jf.Objects, spec)
	}
	return jf
}

func isRect(o model.Object) bool {
	rect := model.RectOutline(o.Width, o.Height)
	if len(o.Outline) != len(rect) {
		return len(o.Outline) == 0
	}
	for i := range rect {
		if o.Outline[i] != rect[i] {
			return false
		}
	}
	return true
}

// LoadJob reads a job file. Parameters missing from the file take the
// values from config.
func LoadJob(path string, config model.AppConfig) (JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JobFile{}, fmt.Errorf("reading job file: %w", err)
	}

	jf := JobFile{Params: config.DefaultParameters}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&jf); err != nil {
		return JobFile{}, fmt.Errorf("parsing job file: %w", err)
	}
	if jf.Version > JobFileVersion {
		return JobFile{}, fmt.Errorf("job file version %d is newer than supported version %d", jf.Version, JobFileVersion)
	}
	return jf, nil
}

// SaveJob writes a job file as YAML, creating parent directories.
func SaveJob(path string, jf JobFile) error {
	if jf.Version == 0 {
		jf.Version = JobFileVersion
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(jf); err != nil {
		return fmt.Errorf("encoding job file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ToJob resolves sources and the sheet boundary relative to baseDir and
// builds the job. Import warnings are returned alongside the job; import
// errors fail the conversion.
func (jf JobFile) ToJob(baseDir string, config model.AppConfig) (nesting.Job, []string, error) {
	var warnings []string

	sheet, err := jf.Sheet.toSheet(baseDir, config)
	if err != nil {
		return nesting.Job{}, nil, err
	}

	var objects []model.Object
	for i, spec := range jf.Objects {
		obj, err := spec.toObject()
		if err != nil {
			return nesting.Job{}, nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		objects = append(objects, obj)
	}

	var importErrs []string
	for _, src := range jf.Sources {
		res := importer.ImportFile(resolve(baseDir, src.Path), src.Copies)
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", src.Path, w))
		}
		for _, e := range res.Errors {
			importErrs = append(importErrs, fmt.Sprintf("%s: %s", src.Path, e))
		}
		objects = append(objects, res.Objects...)
	}
	if len(importErrs) > 0 {
		return nesting.Job{}, warnings, errors.New(strings.Join(importErrs, "; "))
	}

	return nesting.Job{Objects: objects, Sheet: sheet, Params: jf.Params}, warnings, nil
}

func (s SheetSpec) toSheet(baseDir string, config model.AppConfig) (model.Sheet, error) {
	var sheet model.Sheet
	switch {
	case s.Boundary != "":
		b, err := importer.ImportDXFSheet(resolve(baseDir, s.Boundary))
		if err != nil {
			return model.Sheet{}, fmt.Errorf("sheet boundary: %w", err)
		}
		sheet = b
	case s.Width > 0 || s.Height > 0:
		sheet = model.NewSheet(s.Width, s.Height)
		sheet.Origin = s.Origin
	default:
		sheet = config.DefaultSheet()
		sheet.Origin = s.Origin
	}
	sheet.Label = s.Label
	sheet.MultiSheet = s.MultiSheet == nil || *s.MultiSheet
	return sheet, nil
}

func (s ObjectSpec) toObject() (model.Object, error) {
	var obj model.Object
	if len(s.Outline) > 0 {
		if len(s.Outline) < 3 {
			return obj, fmt.Errorf("outline of %q needs at least 3 points", s.Label)
		}
		obj = model.NewOutlineObject(s.Label, s.Outline, s.Copies)
	} else {
		obj = model.NewObject(s.Label, s.Width, s.Height, s.Copies)
	}
	if s.Priority != nil {
		obj.Priority = *s.Priority
	}
	if s.Orientation != nil {
		obj.Orientation = *s.Orientation
	}
	obj.Criterion = s.Criterion
	return obj, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
