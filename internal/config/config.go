package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUsage is returned for missing or malformed command line arguments.
var ErrUsage = errors.New("usage error")

const defaultCPUInfoPath = "/proc/cpuinfo"

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	Debug    bool

	UserAgent string
	URL       string

	MQTTHost     string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string

	// MetricsAddr is the listen address for /metrics. Empty disables the endpoint.
	MetricsAddr string
	CPUInfoPath string
}

var requiredFlags = []string{
	"debug",
	"user_agent",
	"url",
	"mqtt_host",
	"mqtt_port",
	"mqtt_topic",
	"mqtt_client_id",
}

// Load parses the command line arguments (without the program name) and the
// ambient environment settings. Usage text goes to out on failure.
func Load(args []string, out io.Writer) (Config, error) {
	fs := flag.NewFlagSet("airquality-gateway", flag.ContinueOnError)
	fs.SetOutput(out)

	debug := fs.String("debug", "", "enable verbose tracing (yes|no)")
	userAgent := fs.String("user_agent", "", "contact tag sent in the User-Agent header")
	url := fs.String("url", "", "URL of the air quality API")
	mqttHost := fs.String("mqtt_host", "", "hostname of the MQTT broker")
	mqttPort := fs.Int("mqtt_port", 0, "port of the MQTT broker")
	mqttTopic := fs.String("mqtt_topic", "", "MQTT topic to publish to")
	mqttClientID := fs.String("mqtt_client_id", "", "client id of the publishing MQTT client")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return Config{}, usage(fs, "unexpected arguments %q", fs.Args())
	}

	seen := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	for _, name := range requiredFlags {
		if !seen[name] {
			return Config{}, usage(fs, "missing required flag --%s", name)
		}
	}

	debugOn, err := parseDebug(*debug)
	if err != nil {
		return Config{}, usage(fs, "%v", err)
	}
	level := slog.LevelInfo
	if debugOn {
		level = slog.LevelDebug
	}

	for name, v := range map[string]string{
		"user_agent":     *userAgent,
		"url":            *url,
		"mqtt_host":      *mqttHost,
		"mqtt_topic":     *mqttTopic,
		"mqtt_client_id": *mqttClientID,
	} {
		if strings.TrimSpace(v) == "" {
			return Config{}, usage(fs, "flag --%s must not be empty", name)
		}
	}

	if *mqttPort < 1 || *mqttPort > 65535 {
		return Config{}, usage(fs, "invalid --mqtt_port %d (allowed: 1-65535)", *mqttPort)
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	cpuInfoPath := strings.TrimSpace(os.Getenv("CPUINFO_PATH"))
	if cpuInfoPath == "" {
		cpuInfoPath = defaultCPUInfoPath
	}

	return Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		Debug:        debugOn,
		UserAgent:    strings.TrimSpace(*userAgent),
		URL:          strings.TrimSpace(*url),
		MQTTHost:     strings.TrimSpace(*mqttHost),
		MQTTPort:     *mqttPort,
		MQTTTopic:    strings.TrimSpace(*mqttTopic),
		MQTTClientID: strings.TrimSpace(*mqttClientID),
		MetricsAddr:  strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		CPUInfoPath:  cpuInfoPath,
	}, nil
}

func parseDebug(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --debug %q (allowed: yes, no)", s)
	}
}

func usage(fs *flag.FlagSet, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(fs.Output(), msg)
	fs.Usage()
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}
