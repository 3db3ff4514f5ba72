package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/picogrid/atc-simulations/pkg/simulation"
)

// Environment variables read by the prompts
const (
	EnvPrefix      = "ATC_"
	SkipPromptsEnv = EnvPrefix + "SKIP_PROMPTS"
)

// SkipPrompts reports whether prompts are disabled for CI or automation
func SkipPrompts() bool {
	return os.Getenv(SkipPromptsEnv) == "true"
}

// PromptForParameters prompts the user for simulation parameters. Values in
// presets, usually from a saved profile, replace the declared defaults.
func PromptForParameters(params []simulation.Parameter, presets map[string]interface{}) (map[string]interface{}, error) {
	if SkipPrompts() {
		return ResolveParameters(params, presets)
	}

	result := make(map[string]interface{})
	for _, raw := range params {
		param, err := withDefault(raw, presets)
		if err != nil {
			return nil, err
		}
		value, err := promptForParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		result[param.Name] = value
	}

	return result, nil
}

// ResolveParameters returns parameter values without prompting. An ATC_<NAME>
// environment variable wins over presets, which win over the declared
// default.
func ResolveParameters(params []simulation.Parameter, presets map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for _, raw := range params {
		param, err := withDefault(raw, presets)
		if err != nil {
			return nil, err
		}
		if param.Default == nil {
			if param.Required {
				return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
			}
			continue
		}
		value, err := coerce(param.Default, param)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", param.Name, err)
		}
		if err := checkRange(value, param); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", param.Name, err)
		}
		result[param.Name] = value
	}
	return result, nil
}

// withDefault folds presets and the environment into the parameter default
func withDefault(param simulation.Parameter, presets map[string]interface{}) (simulation.Parameter, error) {
	if v, ok := presets[param.Name]; ok {
		param.Default = v
	}

	envKey := EnvPrefix + strings.ToUpper(param.Name)
	if envValue := os.Getenv(envKey); envValue != "" {
		parsed, err := parseEnvValue(envValue, param)
		if err != nil {
			return param, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		param.Default = parsed
	}
	return param, nil
}

// promptForParameter prompts for a single parameter
func promptForParameter(param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		return promptInteger(param)
	case "float":
		return promptFloat(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBoolean(param)
	case "duration":
		return promptDuration(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// parseEnvValue parses an environment variable value according to the parameter type
func parseEnvValue(value string, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		return strconv.Atoi(value)
	case "float":
		return strconv.ParseFloat(value, 64)
	case "string":
		return value, nil
	case "boolean":
		return strconv.ParseBool(value)
	case "duration":
		return time.ParseDuration(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// coerce converts a YAML or preset value to the Go type of the parameter
func coerce(value interface{}, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		case string:
			return strconv.Atoi(v)
		}
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case "string":
		return fmt.Sprintf("%v", value), nil
	case "boolean":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		}
	case "duration":
		switch v := value.(type) {
		case time.Duration:
			return v, nil
		case string:
			return time.ParseDuration(v)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
	return nil, fmt.Errorf("cannot use %v (%T) as %s", value, value, param.Type)
}

// checkRange enforces min, max and options on a coerced value
func checkRange(value interface{}, param simulation.Parameter) error {
	switch v := value.(type) {
	case int:
		if param.Min != nil && v < toInt(param.Min) {
			return fmt.Errorf("value must be at least %d", toInt(param.Min))
		}
		if param.Max != nil && v > toInt(param.Max) {
			return fmt.Errorf("value must be at most %d", toInt(param.Max))
		}
	case float64:
		if param.Min != nil && v < toFloat64(param.Min) {
			return fmt.Errorf("value must be at least %g", toFloat64(param.Min))
		}
		if param.Max != nil && v > toFloat64(param.Max) {
			return fmt.Errorf("value must be at most %g", toFloat64(param.Max))
		}
	case string:
		if len(param.Options) == 0 {
			return nil
		}
		for _, opt := range param.Options {
			if v == opt {
				return nil
			}
		}
		return fmt.Errorf("value must be one of %s", strings.Join(param.Options, ", "))
	}
	return nil
}

// parsedValidator re-asks until the answer parses and is in range
func parsedValidator(param simulation.Parameter) survey.Validator {
	return func(ans interface{}) error {
		str, _ := ans.(string)
		value, err := coerce(strings.TrimSpace(str), param)
		if err != nil {
			return fmt.Errorf("invalid %s", param.Type)
		}
		return checkRange(value, param)
	}
}

func defaultString(param simulation.Parameter) string {
	if param.Default == nil {
		return ""
	}
	if param.Type == "integer" {
		return strconv.Itoa(toInt(param.Default))
	}
	return fmt.Sprintf("%v", param.Default)
}

func askParsed(param simulation.Parameter, message string) (interface{}, error) {
	prompt := &survey.Input{
		Message: message,
		Default: defaultString(param),
	}

	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(survey.Required, parsedValidator(param)))); err != nil {
		return nil, err
	}
	return coerce(strings.TrimSpace(result), param)
}

func promptInteger(param simulation.Parameter) (int, error) {
	value, err := askParsed(param, param.Description)
	if err != nil {
		return 0, err
	}
	return value.(int), nil
}

func promptFloat(param simulation.Parameter) (float64, error) {
	value, err := askParsed(param, param.Description)
	if err != nil {
		return 0, err
	}
	return value.(float64), nil
}

func promptDuration(param simulation.Parameter) (time.Duration, error) {
	value, err := askParsed(param, param.Description+" (e.g., 50ms, 1s, 2m)")
	if err != nil {
		return 0, err
	}
	return value.(time.Duration), nil
}

func promptString(param simulation.Parameter) (string, error) {
	defaultStr := defaultString(param)

	// If options are provided, use a select prompt
	if len(param.Options) > 0 {
		prompt := &survey.Select{
			Message: param.Description,
			Options: param.Options,
		}
		if checkRange(defaultStr, param) == nil {
			prompt.Default = defaultStr
		}

		var result string
		if err := survey.AskOne(prompt, &result); err != nil {
			return "", err
		}
		return result, nil
	}

	// Otherwise use input prompt
	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	var validators []survey.Validator
	if param.Required {
		validators = append(validators, survey.Required)
	}

	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
		return "", err
	}

	return result, nil
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	defaultBool := false
	if param.Default != nil {
		if v, err := coerce(param.Default, param); err == nil {
			defaultBool = v.(bool)
		}
	}

	prompt := &survey.Confirm{
		Message: param.Description,
		Default: defaultBool,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}

	return result, nil
}

// Helper functions
func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
