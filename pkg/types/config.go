package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litharvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LibraryType selects which kind of Zotero library the API key addresses.
type LibraryType string

const (
	LibraryGroup LibraryType = "group"
	LibraryUser  LibraryType = "user"
)

// ZoteroConfig holds settings for the reference-manager client.
type ZoteroConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Zotero web API root (default "https://api.zotero.org").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// LibraryType is "group" (default) or "user".
	LibraryType LibraryType `json:"library_type" yaml:"library_type" mapstructure:"library_type"`

	// LibraryID is the numeric group or user ID.
	LibraryID string `json:"library_id" yaml:"library_id" mapstructure:"library_id"`

	// APIKey authenticates requests. Usually loaded from .secrets/ or .env.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the number of records requested per page (max 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
}

// AIConfig holds shared settings for stages that call a language model.
type AIConfig struct {
	// Model is the model identifier (e.g. "llama3.1:8b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Host is the model server URL (e.g. "http://localhost:11434").
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ClassifyConfig holds settings for abstract screening.
type ClassifyConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Topic is the subject the abstracts are screened against.
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic"`

	// Concurrency is the number of abstracts classified at once (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// AcquisitionConfig holds settings for attachment downloads.
type AcquisitionConfig struct {
	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// PapersDir is the base directory for papers (contains raw/, metadata/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`
}

// Region is an inset applied to the display bounds before capture: the
// origin moves by Left/Top and the size shrinks by Width/Height.
type Region struct {
	Top    int `json:"top" yaml:"top" mapstructure:"top"`
	Left   int `json:"left" yaml:"left" mapstructure:"left"`
	Width  int `json:"width" yaml:"width" mapstructure:"width"`
	Height int `json:"height" yaml:"height" mapstructure:"height"`
}

// Offset is a pixel displacement.
type Offset struct {
	DX int `json:"dx" yaml:"dx" mapstructure:"dx"`
	DY int `json:"dy" yaml:"dy" mapstructure:"dy"`
}

// HarvestConfig holds the tunables of the search-results link harvester.
// The offsets and delays are empirical and tied to one UI layout and zoom level.
type HarvestConfig struct {
	// Display is the index of the captured monitor (0 = primary).
	Display int `json:"display" yaml:"display" mapstructure:"display"`

	// MaxPages is the number of result pages visited (default 50).
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// Threshold is the minimum correlation score of a mark (default 0.8).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// DedupRadius merges detections closer than this many pixels (default 20).
	DedupRadius float64 `json:"dedup_radius" yaml:"dedup_radius" mapstructure:"dedup_radius"`

	// TopMarks is how many leading marks are harvested from the top capture (default 6).
	TopMarks int `json:"top_marks" yaml:"top_marks" mapstructure:"top_marks"`

	// BottomMarks is how many trailing marks are harvested from the bottom capture (default 4).
	BottomMarks int `json:"bottom_marks" yaml:"bottom_marks" mapstructure:"bottom_marks"`

	// TopRegion and BottomRegion are the capture insets before and after scrolling down.
	TopRegion    Region `json:"top_region" yaml:"top_region" mapstructure:"top_region"`
	BottomRegion Region `json:"bottom_region" yaml:"bottom_region" mapstructure:"bottom_region"`

	// MarkOffset moves from the matched mark to the clickable result title.
	MarkOffset Offset `json:"mark_offset" yaml:"mark_offset" mapstructure:"mark_offset"`

	// MenuOffset moves from the right-click point to the "copy link address" menu item.
	MenuOffset Offset `json:"menu_offset" yaml:"menu_offset" mapstructure:"menu_offset"`

	// ScrollTop, ScrollBottom and ScrollNext are wheel clicks for the three scroll steps.
	ScrollTop    int `json:"scroll_top" yaml:"scroll_top" mapstructure:"scroll_top"`
	ScrollBottom int `json:"scroll_bottom" yaml:"scroll_bottom" mapstructure:"scroll_bottom"`
	ScrollNext   int `json:"scroll_next" yaml:"scroll_next" mapstructure:"scroll_next"`

	// NextX and NextY locate the "next page" control as fractions of the monitor size.
	NextX float64 `json:"next_x" yaml:"next_x" mapstructure:"next_x"`
	NextY float64 `json:"next_y" yaml:"next_y" mapstructure:"next_y"`

	// Placeholder is the link value that stands for "no real link" and is
	// never treated as a duplicate.
	Placeholder string `json:"placeholder" yaml:"placeholder" mapstructure:"placeholder"`

	SettleDelay    time.Duration `json:"settle_delay" yaml:"settle_delay" mapstructure:"settle_delay"`
	MarkDelay      time.Duration `json:"mark_delay" yaml:"mark_delay" mapstructure:"mark_delay"`
	MenuDelay      time.Duration `json:"menu_delay" yaml:"menu_delay" mapstructure:"menu_delay"`
	ClipboardDelay time.Duration `json:"clipboard_delay" yaml:"clipboard_delay" mapstructure:"clipboard_delay"`
	PageLoadDelay  time.Duration `json:"page_load_delay" yaml:"page_load_delay" mapstructure:"page_load_delay"`

	// DebugDir receives screenshots of suspected capture errors. Empty disables them.
	DebugDir string `json:"debug_dir" yaml:"debug_dir" mapstructure:"debug_dir"`
}

// DefaultHarvestConfig returns the values the harvester was tuned with.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		MaxPages:       50,
		Threshold:      0.8,
		DedupRadius:    20,
		TopMarks:       6,
		BottomMarks:    4,
		TopRegion:      Region{Top: 200, Left: 200, Width: 1300, Height: 200},
		BottomRegion:   Region{Top: 100, Left: 200, Width: 1300, Height: 100},
		MarkOffset:     Offset{DX: 45, DY: -70},
		MenuOffset:     Offset{DX: 60, DY: 110},
		ScrollTop:      1000,
		ScrollBottom:   500,
		ScrollNext:     1000,
		NextX:          0.5,
		NextY:          0.92,
		Placeholder:    "javascript:void(0)",
		SettleDelay:    time.Second,
		MarkDelay:      500 * time.Millisecond,
		MenuDelay:      300 * time.Millisecond,
		ClipboardDelay: 200 * time.Millisecond,
		PageLoadDelay:  3 * time.Second,
		DebugDir:       "debug",
	}
}

// DefaultZoteroConfig returns the Zotero client defaults.
func DefaultZoteroConfig() ZoteroConfig {
	return ZoteroConfig{
		HTTPConfig: HTTPConfig{
			Timeout:    60 * time.Second,
			UserAgent:  "litharvest/0.1",
			MaxRetries: 5,
		},
		BaseURL:     "https://api.zotero.org",
		LibraryType: LibraryGroup,
		PageSize:    100,
	}
}

// DefaultClassifyConfig returns the screening defaults.
func DefaultClassifyConfig() ClassifyConfig {
	return ClassifyConfig{
		AIConfig: AIConfig{
			Model:      "llama3.1:8b",
			Host:       "http://localhost:11434",
			MaxRetries: 3,
		},
		Topic:       "agricultural technology",
		Concurrency: 1,
	}
}

// DefaultAcquisitionConfig returns the download defaults.
func DefaultAcquisitionConfig() AcquisitionConfig {
	return AcquisitionConfig{
		DownloadDelay: time.Second,
		PapersDir:     "papers",
	}
}

// PipelineConfig groups all stage configurations, as read from litharvest.yaml.
type PipelineConfig struct {
	Zotero      ZoteroConfig      `json:"zotero" yaml:"zotero" mapstructure:"zotero"`
	Classify    ClassifyConfig    `json:"classify" yaml:"classify" mapstructure:"classify"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Harvest     HarvestConfig     `json:"harvest" yaml:"harvest" mapstructure:"harvest"`

	// LibraryDir holds the local SQLite library (library.db).
	LibraryDir string `json:"library_dir" yaml:"library_dir" mapstructure:"library_dir"`
}

// DefaultPipelineConfig returns every stage default.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Zotero:      DefaultZoteroConfig(),
		Classify:    DefaultClassifyConfig(),
		Acquisition: DefaultAcquisitionConfig(),
		Harvest:     DefaultHarvestConfig(),
		LibraryDir:  "library",
	}
}
