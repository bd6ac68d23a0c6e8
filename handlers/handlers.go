package handlers

import (
	"github.com/stakequorum/stakequorum-core/engine"
)

// CONSENSUS_ENGINE is the single engine instance every route and thread
// talks to. It is assigned once during node preparation, before the servers
// start accepting traffic, and never reassigned.
var CONSENSUS_ENGINE *engine.ConsensusEngine
