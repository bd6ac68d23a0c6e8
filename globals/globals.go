package globals

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/stakequorum/stakequorum-core/structures"
)

var CONFIGURATION structures.NodeLevelConfig

var GENESIS structures.Genesis

var CHAINDATA_PATH string

// FLOOD_PREVENTION_FLAG_FOR_ROUTES gates all public routes. It stays false
// until the node has restored its state, so requests that arrive mid-boot
// cannot observe a half-built engine.
var FLOOD_PREVENTION_FLAG_FOR_ROUTES atomic.Bool

// LoadConfigs reads the node-level config and genesis JSON documents. Paths
// come from the CONFIGS_PATH / GENESIS_PATH / CHAINDATA_PATH env variables
// with defaults relative to the working directory.
func LoadConfigs() error {

	configsPath := os.Getenv("CONFIGS_PATH")

	if configsPath == "" {
		configsPath = "configs.json"
	}

	genesisPath := os.Getenv("GENESIS_PATH")

	if genesisPath == "" {
		genesisPath = "genesis.json"
	}

	CHAINDATA_PATH = os.Getenv("CHAINDATA_PATH")

	if CHAINDATA_PATH == "" {
		CHAINDATA_PATH = "CHAINDATA"
	}

	rawConfigs, err := os.ReadFile(configsPath)

	if err != nil {
		return fmt.Errorf("failed to read configs from %s: %w", configsPath, err)
	}

	if err := json.Unmarshal(rawConfigs, &CONFIGURATION); err != nil {
		return fmt.Errorf("failed to parse configs from %s: %w", configsPath, err)
	}

	rawGenesis, err := os.ReadFile(genesisPath)

	if err != nil {
		return fmt.Errorf("failed to read genesis from %s: %w", genesisPath, err)
	}

	if err := json.Unmarshal(rawGenesis, &GENESIS); err != nil {
		return fmt.Errorf("failed to parse genesis from %s: %w", genesisPath, err)
	}

	if CONFIGURATION.PublicKey == "" || CONFIGURATION.PrivateKey == "" {
		return fmt.Errorf("configs at %s miss PUBLIC_KEY / PRIVATE_KEY", configsPath)
	}

	if GENESIS.NetworkId == "" {
		return fmt.Errorf("genesis at %s misses NETWORK_ID", genesisPath)
	}

	return nil

}
