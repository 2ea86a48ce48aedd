package internal

import (
	"os"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
)

// SettingsFileName is looked up inside the store directory when no settings
// file is given explicitly.
const SettingsFileName = "kvs.yml"

// Settings is the parsed form of a kvs.yml file.
type Settings struct {
	MaxSegmentSize    int64
	CompactionRatio   float64
	MinCompactionSize int64
	AutoCompact       bool
	CompressValues    bool
	StrictRemove      bool
	LogLevel          string
	ListenHost        string
	ListenPort        int
}

func DefaultSettings() *Settings {
	o := core.DefaultOptions()

	return &Settings{
		MaxSegmentSize:    o.MaxSegmentSize,
		CompactionRatio:   o.CompactionRatio,
		MinCompactionSize: o.MinCompactionSize,
		AutoCompact:       o.AutoCompact,
		CompressValues:    o.Compress,
		StrictRemove:      o.StrictRemove,
		LogLevel:          "info",
		ListenHost:        DEFAULT_HOST,
		ListenPort:        DEFAULT_PORT,
	}
}

// LoadSettings reads path into a copy of the defaults. A missing file is not
// an error when optional is set.
func LoadSettings(path string, optional bool) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read settings")
	}

	if err := s.Parse(data); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	log.Debug("loaded settings from %s", path)
	return s, nil
}

// Parse overlays the YAML document in data onto s. Keys absent from the
// document keep their current value.
func (s *Settings) Parse(data []byte) error {
	var aux struct {
		MaxSegmentSize    string `yaml:"max_segment_size"`
		CompactionRatio   string `yaml:"compaction_ratio"`
		MinCompactionSize string `yaml:"min_compaction_size"`
		AutoCompact       string `yaml:"auto_compact"`
		CompressValues    string `yaml:"compress_values"`
		StrictRemove      string `yaml:"strict_remove"`
		LogLevel          string `yaml:"log_level"`
		ListenHost        string `yaml:"listen_host"`
		ListenPort        int    `yaml:"listen_port"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.MaxSegmentSize != "" {
		size, err := bytefmt.ToBytes(aux.MaxSegmentSize)
		if err != nil {
			return errors.Wrapf(err, "max_segment_size %q", aux.MaxSegmentSize)
		}
		if size < core.MinimumMaxSegmentSize || size > core.MaximumMaxSegmentSize {
			return errors.Errorf("max_segment_size %s out of range [%s, %s]", aux.MaxSegmentSize,
				bytefmt.ByteSize(core.MinimumMaxSegmentSize), bytefmt.ByteSize(core.MaximumMaxSegmentSize))
		}
		s.MaxSegmentSize = int64(size)
	}

	if aux.CompactionRatio != "" {
		ratio, err := strconv.ParseFloat(aux.CompactionRatio, 64)
		if err != nil {
			return errors.Wrapf(err, "compaction_ratio %q", aux.CompactionRatio)
		}
		if ratio < core.MinCompactionRatio || ratio > core.MaxCompactionRatio {
			return errors.Errorf("compaction_ratio %v out of range [%v, %v]", ratio,
				core.MinCompactionRatio, core.MaxCompactionRatio)
		}
		s.CompactionRatio = ratio
	}

	if aux.MinCompactionSize != "" {
		size, err := bytefmt.ToBytes(aux.MinCompactionSize)
		if err != nil {
			return errors.Wrapf(err, "min_compaction_size %q", aux.MinCompactionSize)
		}
		s.MinCompactionSize = int64(size)
	}

	var err error
	if s.AutoCompact, err = parseBool("auto_compact", aux.AutoCompact, s.AutoCompact); err != nil {
		return err
	}
	if s.CompressValues, err = parseBool("compress_values", aux.CompressValues, s.CompressValues); err != nil {
		return err
	}
	if s.StrictRemove, err = parseBool("strict_remove", aux.StrictRemove, s.StrictRemove); err != nil {
		return err
	}

	if aux.LogLevel != "" {
		s.LogLevel = aux.LogLevel
	}

	if aux.ListenHost != "" {
		s.ListenHost = aux.ListenHost
	}

	if aux.ListenPort != 0 {
		if aux.ListenPort < 0 || aux.ListenPort > 65535 {
			return errors.Errorf("listen_port %d out of range", aux.ListenPort)
		}
		s.ListenPort = aux.ListenPort
	}

	return nil
}

func parseBool(name, value string, current bool) (bool, error) {
	if value == "" {
		return current, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return current, errors.Wrapf(err, "%s %q", name, value)
	}
	return b, nil
}

// StoreOptions translates the engine settings into options for core.Open.
func (s *Settings) StoreOptions() []core.Option {
	return []core.Option{
		core.WithMaxSegmentSize(s.MaxSegmentSize),
		core.WithCompactionRatio(s.CompactionRatio),
		core.WithMinCompactionSize(s.MinCompactionSize),
		core.WithAutoCompact(s.AutoCompact),
		core.WithCompression(s.CompressValues),
		core.WithStrictRemove(s.StrictRemove),
	}
}
