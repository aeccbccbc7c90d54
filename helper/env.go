package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/xlpipe/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	}
	if mandatory {
		return "", fmt.Errorf("environment variable %v is not set", k)
	}
	return "", nil
}

// ReadValueFromEnv will read the env var called name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v == "" {
		return fmt.Errorf("value for environment variable %v not found", name)
	}
	*val = v
	return nil
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" {
		v = defaultValue
	}
	return
}

// GetDsnEnvVarName returns XP_<CONNECTION>_DSN.
func GetDsnEnvVarName(connectionName string) string {
	return fmt.Sprintf("%v_%v_DSN", constants.EnvVarPrefix, envVarToken(connectionName))
}

// GetRegionEnvVarName returns XP_<CONNECTION>_S3_REGION.
func GetRegionEnvVarName(connectionName string) string {
	return fmt.Sprintf("%v_%v_S3_REGION", constants.EnvVarPrefix, envVarToken(connectionName))
}

func envVarToken(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(s)), "-", "_")
}
