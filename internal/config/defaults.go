package config

const (
	defaultRawDir            = "~/.local/share/sessionscribe/raw"
	defaultSessionsDir       = "~/.local/share/sessionscribe/sessions"
	defaultQueueDir          = "~/.local/share/sessionscribe/_queue"
	defaultLogDir            = "~/.local/share/sessionscribe/logs"
	defaultWatcherMode       = "interval"
	defaultWatcherPoll       = 30
	defaultAutoRunBatchLimit = 3
	defaultWorkerPoll        = 2
	defaultPreset            = "fast"
	defaultAnalyzeBackend    = "mock"
	defaultFramesPerSegment  = 6
	defaultAlignWindow       = 1.5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

var defaultExtensions = []string{".mp4", ".mkv", ".mov"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDirs:     []string{defaultRawDir},
			SessionsDir: defaultSessionsDir,
			QueueDir:    defaultQueueDir,
			LogDir:      defaultLogDir,
		},
		Watcher: Watcher{
			Mode:              defaultWatcherMode,
			PollInterval:      defaultWatcherPoll,
			AutoRunBatchLimit: defaultAutoRunBatchLimit,
			Extensions:        append([]string{}, defaultExtensions...),
		},
		Worker: Worker{
			PollInterval:       defaultWorkerPoll,
			Preset:             defaultPreset,
			AnalyzeBackend:     defaultAnalyzeBackend,
			ASRModels:          []string{"base"},
			FramesPerSegment:   defaultFramesPerSegment,
			AlignWindowSeconds: defaultAlignWindow,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
