package config

const (
	defaultDataDir           = "~/.local/share/luster"
	defaultUploadDir         = "~/.local/share/luster/uploads"
	defaultResultsDir        = "~/.local/share/luster/results"
	defaultLogDir            = "~/.local/share/luster/logs"
	defaultAPIBind           = "127.0.0.1:7420"
	defaultWorkerCommand     = "luster-worker"
	defaultWorkerSpawn       = 10
	defaultPollInterval      = 2
	defaultProcessingTimeout = 600
	defaultRetentionHours    = 24
	defaultPurgeInterval     = 900
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			UploadDir:  defaultUploadDir,
			ResultsDir: defaultResultsDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Worker: Worker{
			Command:      defaultWorkerCommand,
			SpawnTimeout: defaultWorkerSpawn,
		},
		Monitor: Monitor{
			PollInterval:      defaultPollInterval,
			ProcessingTimeout: defaultProcessingTimeout,
		},
		Jobs: Jobs{
			RetentionHours: defaultRetentionHours,
			PurgeInterval:  defaultPurgeInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobReceived:    true,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
