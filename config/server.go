package config

import (
	"fmt"
	"io"

	"github.com/viert/flatfs/storage"
	"gopkg.in/ini.v1"
)

const (
	defaultLogLevel = "info"
)

// ServerCfg represents a server config
type ServerCfg struct {
	Bind            string
	HTTPBind        string
	LogFileName     string
	LogLevel        string
	StorageFileName string
	Geometry        storage.Geometry
}

// ReadServerConfig reads and returns a flatfs server config
// from an io.Reader object
func ReadServerConfig(r io.Reader) (*ServerCfg, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %s", err)
	}
	p, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %s", err)
	}

	cfg := &ServerCfg{}

	main := p.Section("main")
	if !main.HasKey("bind") {
		return nil, fmt.Errorf("error reading main.bind: key is missing")
	}
	cfg.Bind = main.Key("bind").String()
	cfg.HTTPBind = main.Key("http").String()
	cfg.LogFileName = main.Key("log").String()
	cfg.LogLevel = main.Key("log_level").MustString(defaultLogLevel)

	st := p.Section("storage")
	if !st.HasKey("file") {
		return nil, fmt.Errorf("error reading storage.file: key is missing")
	}
	cfg.StorageFileName = st.Key("file").String()

	cfg.Geometry.TotalBlocks, err = intKey(st, "blocks", storage.DefaultTotalBlocks)
	if err != nil {
		return nil, err
	}
	cfg.Geometry.BlockSize, err = intKey(st, "block_size", storage.DefaultBlockSize)
	if err != nil {
		return nil, err
	}
	cfg.Geometry.MaxFiles, err = intKey(st, "max_files", storage.DefaultMaxFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("error reading storage section: %w", err)
	}

	return cfg, nil
}

func intKey(s *ini.Section, name string, def int) (int, error) {
	if !s.HasKey(name) {
		return def, nil
	}
	v, err := s.Key(name).Int()
	if err != nil {
		return 0, fmt.Errorf("error reading %s.%s: %s", s.Name(), name, err)
	}
	return v, nil
}
