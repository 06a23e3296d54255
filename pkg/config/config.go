package config

import (
	"fmt"
	"os"
	"time"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/frame"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const (
	DeviceSerial = "serial"
	DeviceFile   = "file"
)

type Config struct {
	Device             string              `yaml:"device"`
	LogLevel           string              `yaml:"log_level"`
	Serial             Serial              `yaml:"serial"`
	Playback           Playback            `yaml:"playback"`
	RecordLocation     string              `yaml:"record_location"`
	Framing            frame.Options       `yaml:"framing"`
	Calibration        adc.Calibration     `yaml:"calibration"`
	Output             Output              `yaml:"output"`
	OutputDestinations []OutputDestination `yaml:"output_destinations"`
	VizServer          struct {
		Enabled        bool          `yaml:"enabled"`
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval"`
		PlotSamples    int           `yaml:"plot_samples"`
	} `yaml:"viz_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

type Serial struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	ReadSize    int           `yaml:"read_size"`
}

type Playback struct {
	Location string        `yaml:"location"`
	ReadSize int           `yaml:"read_size"`
	Delay    time.Duration `yaml:"delay"`
}

type Output struct {
	Directory string   `yaml:"directory"`
	Name      string   `yaml:"name"`
	Formats   []string `yaml:"formats,flow"`
	Console   bool     `yaml:"console"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func Default() Config {
	var c Config
	c.Device = DeviceSerial
	c.LogLevel = zerolog.InfoLevel.String()
	c.Serial = Serial{
		BaudRate:    115200,
		ReadTimeout: time.Second,
		ReadSize:    1024,
	}
	c.Playback = Playback{
		ReadSize: 1024,
		Delay:    10 * time.Millisecond,
	}
	c.Framing = frame.DefaultOptions()
	c.Calibration = adc.DefaultCalibration()
	c.Output = Output{
		Directory: ".",
		Name:      "serialmail",
		Formats:   []string{"csv"},
		Console:   true,
	}
	c.VizServer.Port = 8080
	c.VizServer.UpdateInterval = 500 * time.Millisecond
	c.VizServer.PlotSamples = 512
	return c
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	contents, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("error unmarshaling yaml file: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Device {
	case DeviceSerial:
		if c.Serial.Port == "" {
			return fmt.Errorf("serial device requires a port")
		}
		if c.Serial.BaudRate <= 0 {
			return fmt.Errorf("baud rate must be positive, got %d", c.Serial.BaudRate)
		}
		if c.Serial.ReadSize <= 0 {
			return fmt.Errorf("serial read_size must be positive, got %d", c.Serial.ReadSize)
		}
	case DeviceFile:
		if c.Playback.Location == "" {
			return fmt.Errorf("file device requires a playback location")
		}
		if c.Playback.ReadSize <= 0 {
			return fmt.Errorf("playback read_size must be positive, got %d", c.Playback.ReadSize)
		}
	default:
		return fmt.Errorf("unknown device %q", c.Device)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Framing.Validate(); err != nil {
		return err
	}
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	if c.Output.Name == "" {
		return fmt.Errorf("output name must not be empty")
	}
	if c.VizServer.Enabled && (c.VizServer.PlotSamples <= 0 || c.VizServer.UpdateInterval <= 0) {
		return fmt.Errorf("viz server needs positive plot_samples and update_interval")
	}
	for _, d := range c.OutputDestinations {
		if d.Host == "" || d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("invalid output destination %s:%d", d.Host, d.Port)
		}
	}
	return nil
}
