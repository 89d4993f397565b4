// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// GPS
	GPSSerialPort      string // "sim" for the built-in simulator
	GPSBaudRate        int
	GPSReadTimeout     int // milliseconds
	GPSSentencePrefix  string
	GPSInterval        int // milliseconds
	GPSWindowRows      int
	GPSLineBuffer      int
	GPSMaxLinesPerTick int
	GPSSimLatitude     float64
	GPSSimLongitude    float64

	// Vision
	VisionSource         string   // "pipe" or "dir"
	VisionCaptureCommand []string // empty: ffmpeg on /dev/video0
	VisionDir            string
	VisionFrameWidth     int
	VisionFrameHeight    int
	VisionInterval       int // milliseconds
	VisionStartTimeout   int // milliseconds to wait for the first frame

	// Detector
	DetectorCommand    []string // empty: no detector
	DetectorConfidence float64
	DetectorTimeout    int // milliseconds to wait for each reply

	// Display
	DisplayTitle        string
	DisplayImageColumns int

	// OLED mirror
	OLEDEnable bool
	OLEDI2CBus string

	LogFile string
}

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		GPSBaudRate:         4800,
		GPSReadTimeout:      1000,
		GPSSentencePrefix:   "$GNGGA",
		GPSInterval:         500,
		GPSWindowRows:       1,
		GPSLineBuffer:       32,
		GPSMaxLinesPerTick:  16,
		GPSSimLatitude:      51.4779,
		GPSSimLongitude:     -0.0015,
		VisionSource:        "pipe",
		VisionFrameWidth:    1280,
		VisionFrameHeight:   720,
		VisionInterval:      50,
		VisionStartTimeout:  5000,
		DetectorConfidence:  0.5,
		DetectorTimeout:     2000,
		DisplayTitle:        "EAGLE EYE",
		DisplayImageColumns: 80,
		LogFile:             "eagleeye.log",
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are read as a YAML mapping of the same keys.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.parseYAML(data)
	default:
		err = cfg.parseText(data)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseText(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) parseYAML(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid yaml config: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("yaml config line %d: top level must be a mapping", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("yaml config line %d: %s must be a scalar", k.Line, k.Value)
		}
		if err := c.setValue(strings.ToUpper(k.Value), v.Value); err != nil {
			return fmt.Errorf("config line %d: %w", k.Line, err)
		}
	}
	return nil
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func atof(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = atoi(key, value)
	case "GPS_READ_TIMEOUT":
		c.GPSReadTimeout, err = atoi(key, value)
	case "GPS_SENTENCE_PREFIX":
		c.GPSSentencePrefix = value
	case "GPS_INTERVAL":
		c.GPSInterval, err = atoi(key, value)
	case "GPS_WINDOW_ROWS":
		c.GPSWindowRows, err = atoi(key, value)
	case "GPS_LINE_BUFFER":
		c.GPSLineBuffer, err = atoi(key, value)
	case "GPS_MAX_LINES_PER_TICK":
		c.GPSMaxLinesPerTick, err = atoi(key, value)
	case "GPS_SIM_LATITUDE":
		c.GPSSimLatitude, err = atof(key, value)
	case "GPS_SIM_LONGITUDE":
		c.GPSSimLongitude, err = atof(key, value)

	// Vision
	case "VISION_SOURCE":
		c.VisionSource = strings.ToLower(value)
	case "VISION_CAPTURE_COMMAND":
		c.VisionCaptureCommand = strings.Fields(value)
	case "VISION_DIR":
		c.VisionDir = value
	case "VISION_FRAME_WIDTH":
		c.VisionFrameWidth, err = atoi(key, value)
	case "VISION_FRAME_HEIGHT":
		c.VisionFrameHeight, err = atoi(key, value)
	case "VISION_INTERVAL":
		c.VisionInterval, err = atoi(key, value)
	case "VISION_START_TIMEOUT":
		c.VisionStartTimeout, err = atoi(key, value)

	// Detector
	case "DETECTOR_COMMAND":
		c.DetectorCommand = strings.Fields(value)
	case "DETECTOR_CONFIDENCE":
		c.DetectorConfidence, err = atof(key, value)
	case "DETECTOR_TIMEOUT":
		c.DetectorTimeout, err = atoi(key, value)

	// Display
	case "DISPLAY_TITLE":
		c.DisplayTitle = value
	case "DISPLAY_IMAGE_COLUMNS":
		c.DisplayImageColumns, err = atoi(key, value)

	// OLED
	case "OLED_ENABLE":
		c.OLEDEnable, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid OLED_ENABLE %q: %w", value, err)
		}
	case "OLED_I2C_BUS":
		c.OLEDI2CBus = value

	case "LOG_FILE":
		c.LogFile = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.GPSReadTimeout < 0 {
		return fmt.Errorf("GPS_READ_TIMEOUT must not be negative, got %d", c.GPSReadTimeout)
	}
	if c.GPSInterval <= 0 {
		return fmt.Errorf("GPS_INTERVAL must be positive, got %d", c.GPSInterval)
	}
	if c.GPSWindowRows < 1 {
		return fmt.Errorf("GPS_WINDOW_ROWS must be at least 1, got %d", c.GPSWindowRows)
	}
	if c.GPSLineBuffer < 1 {
		return fmt.Errorf("GPS_LINE_BUFFER must be at least 1, got %d", c.GPSLineBuffer)
	}
	if c.GPSMaxLinesPerTick < 1 {
		return fmt.Errorf("GPS_MAX_LINES_PER_TICK must be at least 1, got %d", c.GPSMaxLinesPerTick)
	}

	switch c.VisionSource {
	case "pipe":
		if c.VisionFrameWidth <= 0 || c.VisionFrameHeight <= 0 {
			return fmt.Errorf("VISION_FRAME_WIDTH and VISION_FRAME_HEIGHT must be positive, got %dx%d",
				c.VisionFrameWidth, c.VisionFrameHeight)
		}
	case "dir":
		if c.VisionDir == "" {
			return fmt.Errorf("VISION_DIR is required when VISION_SOURCE=dir")
		}
	default:
		return fmt.Errorf("VISION_SOURCE must be pipe or dir, got %q", c.VisionSource)
	}
	if c.VisionInterval <= 0 {
		return fmt.Errorf("VISION_INTERVAL must be positive, got %d", c.VisionInterval)
	}
	if c.VisionStartTimeout <= 0 {
		return fmt.Errorf("VISION_START_TIMEOUT must be positive, got %d", c.VisionStartTimeout)
	}

	if c.DetectorConfidence < 0 || c.DetectorConfidence > 1 {
		return fmt.Errorf("DETECTOR_CONFIDENCE must be 0-1, got %g", c.DetectorConfidence)
	}
	if c.DetectorTimeout <= 0 {
		return fmt.Errorf("DETECTOR_TIMEOUT must be positive, got %d", c.DetectorTimeout)
	}
	if c.DisplayImageColumns < 1 {
		return fmt.Errorf("DISPLAY_IMAGE_COLUMNS must be at least 1, got %d", c.DisplayImageColumns)
	}
	return nil
}
