package file

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midipredict/internal/predict"
)

// ReadConfig reads the engine tuning. Missing fields stay zero and pick up defaults in predict.NewEngine.
// An empty name returns an empty config.
func ReadConfig(fsys fs.FS, configFile string) (*predict.Config, error) {
	var config predict.Config
	if configFile == "" {
		return &config, nil
	}
	f, err := fsys.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", configFile, err)
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", configFile, err)
	}
	return &config, nil
}
