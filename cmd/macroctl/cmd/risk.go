package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mcauduro0/macro-trading/internal/config"
	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Risk engine queries",
}

var riskSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute a full risk snapshot for a position file",
	Args:  cobra.NoArgs,
	RunE:  runRiskSnapshot,
}

var riskStressCmd = &cobra.Command{
	Use:   "stress <scenario-name>",
	Short: "Run one configured stress scenario against a position file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRiskStress,
}

var (
	riskConfigPath    string
	riskPositionsPath string
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskSnapshotCmd)
	riskCmd.AddCommand(riskStressCmd)

	riskCmd.PersistentFlags().StringVar(&riskConfigPath, "config", "", "path to config file")
	riskCmd.PersistentFlags().StringVar(&riskPositionsPath, "positions", "positions.json", "path to positions JSON file")
}

// positionFile is the on-disk input for risk queries.
type positionFile struct {
	AsOf      time.Time                 `json:"asOf"`
	Equity    decimal.Decimal           `json:"equity"`
	Positions map[string]types.Position `json:"positions"`
	Returns   map[string][]float64      `json:"returns,omitempty"`
}

func loadRiskInputs() (*risk.Engine, risk.PortfolioState, error) {
	cfg, err := config.Load(riskConfigPath)
	if err != nil {
		return nil, risk.PortfolioState{}, err
	}

	raw, err := os.ReadFile(riskPositionsPath)
	if err != nil {
		return nil, risk.PortfolioState{}, fmt.Errorf("read positions: %w", err)
	}
	var pf positionFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, risk.PortfolioState{}, fmt.Errorf("parse positions: %w", err)
	}

	logger := cliLogger()
	engine, err := risk.NewEngine(logger, cfg.Risk)
	if err != nil {
		return nil, risk.PortfolioState{}, err
	}

	state := risk.PortfolioState{
		AsOf:      pf.AsOf,
		Equity:    pf.Equity,
		Positions: pf.Positions,
		Returns:   pf.Returns,
	}
	return engine, state, nil
}

func runRiskSnapshot(cmd *cobra.Command, args []string) error {
	engine, state, err := loadRiskInputs()
	if err != nil {
		return err
	}

	snapshot := engine.Snapshot(state)
	out, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runRiskStress(cmd *cobra.Command, args []string) error {
	engine, state, err := loadRiskInputs()
	if err != nil {
		return err
	}

	cfg, err := config.Load(riskConfigPath)
	if err != nil {
		return err
	}
	var scenario *types.ShockScenario
	for i := range cfg.Risk.Scenarios {
		if cfg.Risk.Scenarios[i].Name == args[0] {
			scenario = &cfg.Risk.Scenarios[i]
			break
		}
	}
	if scenario == nil {
		return fmt.Errorf("scenario %q not configured", args[0])
	}

	result, err := engine.Stress(state, *scenario)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("render stress result: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
