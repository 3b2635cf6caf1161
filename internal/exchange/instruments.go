package exchange

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"triarb/internal/model"
)

type instrumentsFile struct {
	Instruments []model.Instrument `yaml:"instruments"`
}

// LoadInstrumentsFile reads an instrument listing from a YAML file:
//
//	instruments:
//	  - {symbol: ADAUSDT, base_asset: ADA, quote_asset: USDT, lot_step: 0.1, active: true}
func LoadInstrumentsFile(path string) ([]model.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments file: %w", err)
	}
	defer f.Close()

	var doc instrumentsFile
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode instruments file %s: %w", path, err)
	}
	return doc.Instruments, nil
}
