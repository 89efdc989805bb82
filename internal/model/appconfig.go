package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Defaults applied to jobs that do not set them
	DefaultSheetWidth  float64     `json:"default_sheet_width"`
	DefaultSheetHeight float64     `json:"default_sheet_height"`
	DefaultParameters  Parameters  `json:"default_parameters"`
	FreeRotationStep   int         `json:"free_rotation_step"` // degrees sampled for free orientation
	Cut                CutSettings `json:"cut"`

	// Application preferences
	HistoryPath string   `json:"history_path"` // sqlite file, empty = ~/.slabnest/history.db
	LogLevel    string   `json:"log_level"`
	RecentJobs  []string `json:"recent_jobs"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		DefaultSheetWidth:  100,
		DefaultSheetHeight: 100,
		DefaultParameters:  DefaultParameters(),
		FreeRotationStep:   15,
		Cut:                DefaultCutSettings(),
		LogLevel:           "info",
		RecentJobs:         []string{},
	}
}

// DefaultSheet returns the configured default sheet.
func (c AppConfig) DefaultSheet() Sheet {
	return NewSheet(c.DefaultSheetWidth, c.DefaultSheetHeight)
}

// AddRecentJob records a job file path, most recent first, without duplicates.
func (c *AppConfig) AddRecentJob(path string) {
	const maxRecent = 10
	jobs := []string{path}
	for _, p := range c.RecentJobs {
		if p != path {
			jobs = append(jobs, p)
		}
	}
	if len(jobs) > maxRecent {
		jobs = jobs[:maxRecent]
	}
	c.RecentJobs = jobs
}
