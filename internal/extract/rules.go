package extract

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/niagascore/niagascore/internal/ledger"
)

//go:embed rules.yaml
var rulesYAML []byte

// ruleSet holds the static lookup tables shared by the parsers. It is parsed
// from the embedded document exactly once and treated as read-only.
type ruleSet struct {
	Chat struct {
		PaymentKeywords []string `yaml:"payment_keywords"`
		OrderKeywords   []string `yaml:"order_keywords"`
		SystemMessages  []string `yaml:"system_messages"`
	} `yaml:"chat"`
	CSVSchemas      map[string]csvSchema `yaml:"csv_schemas"`
	ChannelKeywords []channelFamily      `yaml:"channel_keywords"`
}

type csvSchema struct {
	Date   []string `yaml:"date"`
	Amount []string `yaml:"amount"`
	Status []string `yaml:"status"`
}

type channelFamily struct {
	Channel  ledger.Channel `yaml:"channel"`
	Keywords []string       `yaml:"keywords"`
}

var (
	rulesOnce sync.Once
	ruleTable *ruleSet
)

func rules() *ruleSet {
	rulesOnce.Do(func() {
		var rs ruleSet
		if err := yaml.Unmarshal(rulesYAML, &rs); err != nil {
			panic(fmt.Sprintf("extract: embedded rules.yaml invalid: %v", err))
		}
		ruleTable = &rs
	})
	return ruleTable
}
