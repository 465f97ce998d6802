package state

import "path/filepath"

const defaultConfigFileName = "smconcat.yaml"

// GlobalOptions contains global config values that apply for all smconcat sub-commands.
type GlobalOptions struct {
	ConfigFilePath string
	Quiet          bool
	NoColor        bool
	LogOutput      string
	LogFormat      string
	Verbose        bool
}

// GetDefaultGlobalOptions returns the default global flags.
func GetDefaultGlobalOptions(workDir string) GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: filepath.Join(workDir, defaultConfigFileName),
		LogOutput:      "stderr",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalOptions, env map[string]string) GlobalOptions {
	result := defaultFlags

	if val, ok := env["SMCONCAT_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["SMCONCAT_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["SMCONCAT_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["SMCONCAT_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
